package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Month int    `json:"month" validate:"min=1,max=12"`
}

func TestValidate(t *testing.T) {
	_, err := Validate(sample{Name: "a", Month: 3})
	assert.NoError(t, err)

	_, err = Validate(sample{Month: 13})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'Name' failed rule 'required'")
	assert.Contains(t, err.Error(), "'Month' failed rule 'max' expected '12'")
}

func TestProblems(t *testing.T) {
	assert.Nil(t, Problems(sample{Name: "a", Month: 1}))
	assert.Len(t, Problems(sample{Month: 0}), 2)
}

func TestValidateValue(t *testing.T) {
	assert.NoError(t, ValidateValue("master_novo_sales", "required"))
	assert.Error(t, ValidateValue("", "required"))
}
