//go:build !cgo

package transcoder

func newLibWebPEncoder() (Encoder, bool) {
	return nil, false
}
