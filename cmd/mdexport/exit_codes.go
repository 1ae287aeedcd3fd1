package main

import (
	"context"
	"errors"
	"os"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/config"
)

// Exit codes. Custom codes stay below 126, which shells reserve.
const (
	ExitSuccess = 0
	ExitGeneral = 1 // unexpected error, cancellation, timeout
	ExitUsage   = 2 // invalid flags, config or request
	ExitIO      = 3 // source missing or outside the root, output not writable
	ExitBrowser = 4 // Chrome could not print
)

// exitClasses is checked in order; the first class with a matching
// sentinel decides the code. Browser failures come first: they may wrap
// launcher I/O errors.
var exitClasses = []struct {
	code      int
	sentinels []error
}{
	{ExitBrowser, []error{
		mdexport.ErrBrowserConnect, mdexport.ErrPageCreate,
		mdexport.ErrPageLoad, mdexport.ErrPDFGeneration,
	}},
	{ExitIO, []error{
		os.ErrNotExist, os.ErrPermission,
		mdexport.ErrSourceNotFound, mdexport.ErrPermissionDenied,
		ErrWriteOutput, ErrReadDiagrams,
	}},
	{ExitUsage, []error{
		config.ErrConfigNotFound, config.ErrConfigParse,
		config.ErrFieldTooLong, config.ErrFieldRange,
		mdexport.ErrStyleNotFound, mdexport.ErrTemplateNotFound, mdexport.ErrInvalidAssetPath,
		ErrUsage, ErrNoInput, ErrInvalidDiagrams, ErrInvalidTimeout,
	}},
	{ExitGeneral, []error{context.Canceled, context.DeadlineExceeded}},
}

// exitCodeFor maps err to an exit code through errors.Is, so every layer
// must wrap with %w. Unmatched errors fall back to their export Kind.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	for _, class := range exitClasses {
		for _, sentinel := range class.sentinels {
			if errors.Is(err, sentinel) {
				return class.code
			}
		}
	}

	switch mdexport.KindOf(err) {
	case mdexport.InvalidRequest:
		return ExitUsage
	case mdexport.SourceNotFound, mdexport.PermissionDenied:
		return ExitIO
	}
	return ExitGeneral
}
