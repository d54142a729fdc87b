package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"caretaker.app/relay/internal/model"
)

var ErrMissingReview = errors.New("review is missing")

// Result is either a typed review or the reason the raw value is not one.
type Result struct {
	Review *model.ValidatedReview
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil && r.Review != nil
}

// reviewInput mirrors model.ValidatedReview with pointers so absent fields can be
// told apart from zero values.
type reviewInput struct {
	Repo    *string         `json:"repo" validate:"required"`
	PR      json.RawMessage `json:"pr" validate:"required"`
	Comment *string         `json:"comment" validate:"required"`
	Score   *float64        `json:"score"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks an event's embedded review object. Unknown keys are ignored;
// wrong types, missing required fields, a null or absent review all fail.
func Validate(raw json.RawMessage) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Result{Err: ErrMissingReview}
	}

	var in reviewInput
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return Result{Err: fmt.Errorf("decoding review: %w", err)}
	}

	if err := validate.Struct(in); err != nil {
		return Result{Err: describe(err)}
	}

	pr, err := parsePR(in.PR)
	if err != nil {
		return Result{Err: err}
	}

	return Result{Review: &model.ValidatedReview{
		Repo:    *in.Repo,
		PR:      pr,
		Comment: *in.Comment,
		Score:   in.Score,
	}}
}

// parsePR accepts any JSON number with an integral value, so 7, 7.0 and 7e0 are
// the same pull request. Strings and fractions are rejected.
func parsePR(raw json.RawMessage) (int64, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("invalid review: pr failed number: %w", err)
	}

	n, ok := v.(json.Number)
	if !ok {
		if v == nil {
			return 0, errors.New("invalid review: pr failed required")
		}
		return 0, errors.New("invalid review: pr failed number")
	}

	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errors.New("invalid review: pr failed integer")
	}
	return int64(f), nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating review: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid review: %s", strings.Join(msgs, "; "))
}
