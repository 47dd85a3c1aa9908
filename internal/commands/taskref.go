package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"github.com/google/uuid"

	"eisen/internal/matrix"
	"eisen/internal/output"
	"eisen/internal/tasks"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Letter    rune   // 0 if no letter, a quadrant letter or 'c' otherwise
	TaskNum   int    // 1-based task number
	HasLetter bool   // true if a quadrant letter was provided
	ID        string // set when the reference is a full task id
}

var (
	// ErrTaskRefRequired indicates no task reference was provided.
	ErrTaskRefRequired = errors.New("task reference required")

	// ErrInvalidTaskRef indicates a reference that cannot be parsed.
	ErrInvalidTaskRef = errors.New("invalid task reference")

	// ErrTaskOutOfRange indicates a reference that matches no task.
	ErrTaskOutOfRange = errors.New("task number out of range")
)

// String returns the reference as the user would type it.
func (r TaskRef) String() string {
	switch {
	case r.ID != "":
		return r.ID
	case r.HasLetter:
		return fmt.Sprintf("%c%d", r.Letter, r.TaskNum)
	default:
		return strconv.Itoa(r.TaskNum)
	}
}

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. If first arg is all digits → position on the board
// 2. If first arg is <letter><digits> (e.g., d1, s12) → position within a quadrant
// 3. If first arg is a single letter and second arg is all digits → separated reference (d 1)
// 4. If first arg is a single letter with no second arg → error: task reference required
// 5. If first arg is a UUID → task id
// 6. Otherwise → error: invalid task reference: <ref>
//
// Letters are d (Do Now), s (Schedule), g (Delegate), e (Eliminate) and c (Completed).
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := args[0]

	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, firstArg)
		}
		return TaskRef{TaskNum: num}, nil
	}

	if id, err := uuid.Parse(firstArg); err == nil {
		return TaskRef{ID: id.String()}, nil
	}

	if len(firstArg) > 0 && isRefLetter(rune(firstArg[0])) {
		letter := rune(firstArg[0])

		if len(firstArg) > 1 && isAllDigits(firstArg[1:]) {
			num, err := strconv.Atoi(firstArg[1:])
			if err != nil {
				return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, firstArg)
			}
			return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
		}

		if len(firstArg) == 1 {
			if len(args) < 2 {
				return TaskRef{}, ErrTaskRefRequired
			}
			if isAllDigits(args[1]) {
				num, err := strconv.Atoi(args[1])
				if err != nil {
					return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, args[1])
				}
				return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
			}
			return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, firstArg)
		}
	}

	return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, firstArg)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isRefLetter returns true if r is a quadrant letter or the completed letter.
func isRefLetter(r rune) bool {
	if r == output.CompletedLetter {
		return true
	}
	_, ok := matrix.QuadrantForLetter(r)
	return ok
}

// Resolve finds the task ref points at among refs, as numbered by output.Number.
func (r TaskRef) Resolve(refs []output.Ref) (output.Ref, error) {
	if r.ID != "" {
		for _, x := range refs {
			if x.Task.ID == r.ID {
				return x, nil
			}
		}
		return output.Ref{}, fmt.Errorf("%w: %s", tasks.ErrTaskNotFound, r.ID)
	}
	if r.TaskNum < 1 {
		return output.Ref{}, fmt.Errorf("%w: %s", ErrTaskOutOfRange, r)
	}
	want := r.String()
	for _, x := range refs {
		if r.HasLetter && x.Ref == want {
			return x, nil
		}
		if !r.HasLetter && x.Num == r.TaskNum {
			return x, nil
		}
	}
	return output.Ref{}, fmt.Errorf("%w: %s", ErrTaskOutOfRange, r)
}

// resolveTask parses the reference in args against the store's current board.
func resolveTask(st *tasks.Store, args []string) (output.Ref, error) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return output.Ref{}, err
	}
	return ref.Resolve(output.Number(st.Tasks(), true))
}
