package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Base    string        `env:"DATABASE_URI_BASE" validate:"required,url"`
	Port    int           `json:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `validate:"gte=0,lte=30s"`
}

func TestValidator_Check(t *testing.T) {
	t.Parallel()

	v, err := New()
	require.NoError(t, err)

	assert.NoError(t, v.Check(sample{Base: "postgres://localhost:5432/", Port: 3000, Timeout: time.Second}))

	err = v.Check(sample{Port: 0, Timeout: time.Minute})
	require.Error(t, err)

	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Len(t, fields, 3)
	assert.Contains(t, fields, "DATABASE_URI_BASE")
	assert.Contains(t, fields, "port")
	assert.Contains(t, fields, "Timeout")
	assert.Contains(t, fields["DATABASE_URI_BASE"], "required")
}

func TestFieldErrors_ErrorIsStable(t *testing.T) {
	t.Parallel()

	fe := FieldErrors{"b": "b is bad", "a": "a is bad"}
	assert.Equal(t, "a is bad; b is bad", fe.Error())
}
