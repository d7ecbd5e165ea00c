package services

import "fmt"

// BuildErrorKind enumerates argument shape errors.
type BuildErrorKind int

const (
	InputIsEmpty BuildErrorKind = iota + 1
	OutputIsEmpty
	UnparseableDepth
	UnparseableOrderMode
)

// BuildError reports request arguments that cannot form a merge.
type BuildError struct {
	Kind  BuildErrorKind
	Value string
}

func (e *BuildError) Error() string {
	switch e.Kind {
	case InputIsEmpty:
		return "input path(s) wasn't provided"
	case OutputIsEmpty:
		return "output path wasn't provided"
	case UnparseableDepth:
		return fmt.Sprintf("couldn't parse the `depth` value (`%s`)", e.Value)
	case UnparseableOrderMode:
		return fmt.Sprintf("couldn't parse the `order_by` value (`%s`)", e.Value)
	default:
		return "invalid merge arguments"
	}
}

// CheckErrorKind enumerates pre-flight safety failures.
type CheckErrorKind int

const (
	InputIsSingleFile CheckErrorKind = iota + 1
	InputIsDirectoryReference
	OutputIsDirectoryReference
	InputIsNotPdfFile
	DepthNotSpecified
	OutputIsDirectory
	OutputIsNotPdfFile
	InputRepetitionWithoutFlag
	ParentOutputWithoutFlag
	CouldNotReadOrCheckFilePath
	OutputAlreadyExists
)

// CheckError reports a merge that is not safe to run.
type CheckError struct {
	Kind CheckErrorKind
	Path string
	Err  error
}

func (e *CheckError) Error() string {
	var msg string
	switch e.Kind {
	case InputIsSingleFile:
		msg = "single file input isn't allowed"
	case InputIsDirectoryReference, OutputIsDirectoryReference:
		msg = "directory reference isn't allowed"
	case InputIsNotPdfFile, OutputIsNotPdfFile:
		msg = "non pdf file argument"
	case DepthNotSpecified:
		msg = "directory input requires a depth"
	case OutputIsDirectory:
		msg = "output as directory isn't allowed"
	case InputRepetitionWithoutFlag:
		msg = "you passed the same input more than once"
	case ParentOutputWithoutFlag:
		msg = "output contains parent dir"
	case CouldNotReadOrCheckFilePath:
		msg = "couldn't read/check file path"
	case OutputAlreadyExists:
		msg = "output already exists"
	default:
		msg = "merge check failed"
	}
	return fmt.Sprintf("%s (`%s`)", msg, e.Path)
}

func (e *CheckError) Unwrap() error { return e.Err }

// RunErrorKind enumerates failures while expanding, merging or saving.
type RunErrorKind int

const (
	EntryDoesNotExist RunErrorKind = iota + 1
	CouldNotReadEntry
	InputRepeatedAfterExpansion
	CouldNotLoadInput
	RootPageNotFound
	CatalogIsNone
	CouldNotSaveTheOutput
)

// RunError reports a merge that failed after it was validated.
type RunError struct {
	Kind RunErrorKind
	Path string
	Err  error
}

func (e *RunError) Error() string {
	var msg string
	switch e.Kind {
	case EntryDoesNotExist:
		msg = "entry does not exist"
	case CouldNotReadEntry:
		msg = "couldn't read entry"
	case InputRepeatedAfterExpansion:
		msg = "the same file was collected more than once"
	case CouldNotLoadInput:
		msg = "couldn't load input"
	case RootPageNotFound:
		msg = "no page tree root found in the inputs"
	case CatalogIsNone:
		msg = "no catalog found in the inputs"
	case CouldNotSaveTheOutput:
		msg = "couldn't save the output"
	default:
		msg = "merge failed"
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (`%s`)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }
