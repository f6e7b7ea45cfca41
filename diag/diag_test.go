package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSeverities(t *testing.T) {
	var l List

	assert.False(t, l.ContainsErrors())
	assert.NoError(t, l.Err())
	assert.Equal(t, "no diagnostics", l.Error())

	l.AddWarning(Source{Line: 3, Column: 7}, "unused %v", "x")
	assert.False(t, l.ContainsErrors())
	assert.NoError(t, l.Err())

	l.AddError(Source{File: "a.wgsl", Line: 5, Column: 1}, "continue outside of a loop")
	assert.True(t, l.ContainsErrors())
	assert.Equal(t, 1, l.Count(Warning))
	assert.Equal(t, 1, l.Count(Error))

	err := l.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error(s), first: continue outside of a loop")

	assert.Equal(t, "3:7: warning: unused x\na.wgsl:5:1: error: continue outside of a loop", l.String())
	assert.Equal(t, "3:7: warning: unused x (and 1 more)", l.Error())
}

func TestInternalRecordsCaller(t *testing.T) {
	var l List
	l.AddInternal(0, "unhandled %v", "kind")

	require.Len(t, l, 1)
	d := l[0]
	assert.Equal(t, InternalError, d.Severity)
	assert.NotZero(t, d.PC)
	assert.Contains(t, d.Error(), "internal compiler error: unhandled kind (at ")
	assert.True(t, l.ContainsErrors())
}

func TestAppend(t *testing.T) {
	var a, b List
	a.AddWarning(Source{}, "w")
	b.AddError(Source{}, "e")

	a.Append(b)
	assert.Len(t, a, 2)
	assert.Equal(t, "error: e", a[1].Error())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "note", Note.String())
	assert.Equal(t, "severity(9)", Severity(9).String())
}
