/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error kinds shared by the duration model and everything built on top of it.
*/

package ircore

import "errors"

var (
	// ErrOddSequenceLength is returned when a duration sequence does not end with a gap
	// and no trailing gap policy applies.
	ErrOddSequenceLength = errors.New("odd sequence length")
	// ErrInvalidArgument covers malformed numeric input, out of domain tolerances and
	// conflicting option combinations.
	ErrInvalidArgument = errors.New("invalid argument")
)
