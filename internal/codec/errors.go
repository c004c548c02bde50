package codec

import "fmt"

// errTruncated and errAlignment build the plain errors this package
// returns for a malformed byte view. Package gvdb classifies them into
// its ErrorKind taxonomy; this package only needs to say precisely
// what went wrong.
func errTruncated(reason string) error {
	return fmt.Errorf("codec: truncated: %s", reason)
}

func errAlignment(alignment uint32) error {
	return fmt.Errorf("codec: alignment %d is not a power of two", alignment)
}
