package errors

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "user not found",
			},
			want: "user not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to provision",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to provision: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through AppError")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
	}{
		{"NotFound", NotFound("missing"), ErrCodeNotFound},
		{"NotFoundf", NotFoundf("user %d missing", 7), ErrCodeNotFound},
		{"Conflict", Conflict("duplicate"), ErrCodeConflict},
		{"Validation", Validation("bad input"), ErrCodeValidation},
		{"ValidationField", ValidationField("email", "required"), ErrCodeValidation},
		{"Internal", Internal("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
		})
	}

	if got := ValidationField("email", "required").Field; got != "email" {
		t.Errorf("Field = %q, want %q", got, "email")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	cause := errors.New("db down")
	err := Wrap(cause, ErrCodeInternal, "lookup failed")
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if !IsInternal(err) {
		t.Errorf("GetCode() = %v, want internal", GetCode(err))
	}
}

func TestCodePredicates(t *testing.T) {
	if !IsNotFound(NotFound("x")) {
		t.Error("IsNotFound failed")
	}
	if !IsConflict(Conflict("x")) {
		t.Error("IsConflict failed")
	}
	if !IsValidation(Validation("x")) {
		t.Error("IsValidation failed")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("IsNotFound should be false for non-AppError")
	}
	if GetCode(errors.New("plain")) != ErrCodeInternal {
		t.Error("GetCode should default to internal for non-AppError")
	}
}
