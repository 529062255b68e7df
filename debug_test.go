package linesock

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineDump(test *testing.T) {
	c := &mockStream{}
	c.WriteString("r1\n")

	dump := &bytes.Buffer{}
	ld := &LineDump{
		RW:   newLineConn(c),
		Dump: dump,
	}

	line, err := ld.ReadLine()
	require.NoError(test, err)
	require.NoError(test, ld.WriteLine(line+"w"))

	assert.Equal(test, "R:2\nr1\n\nW:3\nr1w\n\n", dump.String())
}

func TestLineDumpFilter(test *testing.T) {
	c := &mockStream{}
	c.WriteString("r1\n")

	dump := &bytes.Buffer{}
	ld := &LineDump{
		RW:     newLineConn(c),
		Dump:   dump,
		Filter: func(line string, read bool) bool { return !read },
	}

	line, err := ld.ReadLine()
	require.NoError(test, err)
	require.NoError(test, ld.WriteLine(line))

	assert.Equal(test, "W:2\nr1\n\n", dump.String())
}
