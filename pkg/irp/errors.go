/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Errors raised while parsing, rendering and recognizing protocols.
*/

package irp

import (
	"errors"
	"fmt"
)

var (
	// ErrParse wraps every syntax error of the protocol notation.
	ErrParse = errors.New("protocol syntax error")
	// ErrDomain is returned when a parameter is outside its declared range.
	ErrDomain = errors.New("parameter outside its domain")
	// ErrNotRecognized is returned when a signal does not match a protocol.
	ErrNotRecognized = errors.New("signal not recognized")
)

// NameUnassignedError reports a name without a value during evaluation or rendering.
type NameUnassignedError struct {
	Name string
}

func (e *NameUnassignedError) Error() string {
	return fmt.Sprintf("name %q is unassigned", e.Name)
}
