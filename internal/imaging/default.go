//go:build !gocv

package imaging

// Default is the codec the command line tools use.
var Default Codec = Std{}
