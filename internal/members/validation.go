package members

import (
	"fmt"
	"strings"

	"github.com/sinoman/superapp/internal/platform/httpx"
)

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: member name is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return fmt.Errorf("%w: member phone is required", httpx.ErrValidation)
	}
	if email := strings.TrimSpace(in.Email); email != "" && !strings.Contains(email, "@") {
		return fmt.Errorf("%w: member email is invalid", httpx.ErrValidation)
	}
	return nil
}

func validateUpdate(in UpdateInput) error {
	return validateCreate(CreateInput{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		Address:  in.Address,
	})
}
