package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "github.com/aBasicDream/tc/pkg/domain-errors"
)

type sampleRequest struct {
	Username string `validate:"required,max=8"`
	Password string `validate:"required"`
}

func TestValidatePasses(t *testing.T) {
	require.NoError(t, Validate(sampleRequest{Username: "alice", Password: "pw"}))
}

func TestValidateReportsFirstFailure(t *testing.T) {
	err := Validate(sampleRequest{})
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	require.Equal(t, "username is required", err.Error())
}

func TestValidateMaxBound(t *testing.T) {
	err := Validate(sampleRequest{Username: "waytoolongname", Password: "pw"})
	require.Error(t, err)
	require.Equal(t, "username must be at most 8", err.Error())
}
