package accounts

import (
	"strings"
	"unicode"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
)

// CreateInput describes a new chart of accounts node.
type CreateInput struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
	ActorID  int64
}

// UpdateInput carries the fields to change; nil pointers are left untouched.
type UpdateInput struct {
	ID          int64
	Code        *string
	Name        *string
	Type        *AccountType
	ParentID    *int64
	ClearParent bool
	ActorID     int64
}

// Usage counts what still references an account.
type Usage struct {
	Lines    int64
	Children int64
	Links    int64
}

// InUse reports whether anything blocks a hard delete.
func (u Usage) InUse() bool {
	return u.Lines > 0 || u.Children > 0 || u.Links > 0
}

func normalizeCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", shared.Invalid(shared.ErrMissingField, "code", raw)
	}
	if strings.IndexFunc(code, unicode.IsSpace) >= 0 || len(code) > 32 {
		return "", shared.Invalid(shared.ErrValidation, "code", raw)
	}
	return code, nil
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", shared.Invalid(shared.ErrMissingField, "name", raw)
	}
	return name, nil
}

func (in CreateInput) account() (Account, error) {
	code, err := normalizeCode(in.Code)
	if err != nil {
		return Account{}, err
	}
	name, err := normalizeName(in.Name)
	if err != nil {
		return Account{}, err
	}
	typ, err := ParseAccountType(string(in.Type))
	if err != nil {
		return Account{}, err
	}
	if in.ParentID != nil && *in.ParentID <= 0 {
		return Account{}, shared.Unresolved(shared.ErrInvalidParent, "parent account", *in.ParentID)
	}
	return Account{Code: code, Name: name, Type: typ, ParentID: in.ParentID, IsActive: true}, nil
}
