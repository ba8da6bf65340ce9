//go:build debug

package flow

func init() {
	strictInvariants = true
}
