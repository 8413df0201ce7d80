package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInt(t *testing.T) {
	assert.Equal(t, 42, ToInt(42))
	assert.Equal(t, 42, ToInt(int64(42)))
	assert.Equal(t, 42, ToInt(42.9))
	assert.Equal(t, 42, ToInt("42"))
	assert.Equal(t, 42, ToInt(" 42 "))
	assert.Equal(t, 42, ToInt([]byte("42")))
	assert.Equal(t, 0, ToInt("not a number"))
	assert.Equal(t, 0, ToInt(nil))
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 1.5, ToFloat(1.5))
	assert.Equal(t, 2.0, ToFloat(2))
	assert.Equal(t, 1.5, ToFloat("1.5"))
	assert.Equal(t, 0.0, ToFloat("garbage"))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool(1))
	assert.True(t, ToBool("1"))
	assert.True(t, ToBool("true"))
	assert.True(t, ToBool("TRUE"))
	assert.False(t, ToBool(0))
	assert.False(t, ToBool("0"))
	assert.False(t, ToBool(""))
	assert.False(t, ToBool(nil))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "abc", ToString("abc"))
	assert.Equal(t, "abc", ToString([]byte("abc")))
	assert.Equal(t, "42", ToString(42))
}

func TestBlankToNil(t *testing.T) {
	assert.Nil(t, BlankToNil(""))
	assert.Nil(t, BlankToNil("   "))
	assert.Equal(t, "x", BlankToNil("x"))
	assert.Equal(t, 0, BlankToNil(0))
}
