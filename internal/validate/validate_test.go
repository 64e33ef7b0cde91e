// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid https", "https://api.telegram.org", []string{"http", "https"}, false},
		{"valid mqtt", "tcp://broker:1883", []string{"tcp", "ssl", "ws", "wss"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
		{"any scheme", "mqtt://example.com", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("url", tt.value, tt.allowedSchemes)
			assert.Equal(t, tt.wantErr, !v.IsValid(), "err: %v", v.Err())
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":9480", false},
		{"127.0.0.1:8080", false},
		{"[::1]:443", false},
		{"9480", true},
		{":0", true},
		{":http", true},
		{"host:70000", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("api.listen", tt.addr)
			assert.Equal(t, tt.wantErr, !v.IsValid(), "err: %v", v.Err())
		})
	}
}

func TestValidator_Numbers(t *testing.T) {
	v := New()
	v.Port("ok.port", 80)
	v.Range("ok.range", 11, 0, 23)
	v.Positive("ok.positive", 1)
	v.Fraction("ok.fraction", 0.1)
	require.True(t, v.IsValid())

	v.Port("bad.port", 65536)
	v.Range("bad.range", 24, 0, 23)
	v.Positive("bad.positive", 0)
	v.Fraction("bad.fraction", 1.5)

	var verr ValidationError
	require.ErrorAs(t, v.Err(), &verr)
	assert.Equal(t, []string{"bad.port", "bad.range", "bad.positive", "bad.fraction"}, verr.Fields())
}

func TestValidator_Strings(t *testing.T) {
	v := New()
	v.NotEmpty("a", "  ")
	v.OneOf("b", "xml", []string{"grpc", "http"})
	v.NotEmpty("c", "x")
	v.OneOf("d", "http", []string{"grpc", "http"})

	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "a", v.Errors()[0].Field)
	assert.Equal(t, "b", v.Errors()[1].Field)
	assert.Contains(t, v.Err().Error(), "; ")
}

func TestValidator_Custom(t *testing.T) {
	v := New()
	v.Custom("tz", "Mars/Base", func(any) error { return errors.New("unknown time zone") })
	v.Custom("ok", 1, func(any) error { return nil })

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, "validation failed for tz: unknown time zone", err.Error())
}

func TestValidator_ErrIsSnapshot(t *testing.T) {
	v := New()
	assert.NoError(t, v.Err())

	v.AddError("a", "bad", nil)
	err := v.Err()
	v.AddError("b", "bad", nil)

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors(), 1)
}

func TestValidator_Directory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tests := []struct {
		name      string
		path      string
		mustExist bool
		wantErr   bool
	}{
		{"existing", dir, true, false},
		{"empty", "", false, true},
		{"traversal", "../escape", false, true},
		{"missing must exist", filepath.Join(dir, "missing"), true, true},
		{"not a directory", file, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Directory("dir", tt.path, tt.mustExist)
			assert.Equal(t, tt.wantErr, !v.IsValid(), "err: %v", v.Err())
		})
	}
}

func TestValidator_DirectoryCreation(t *testing.T) {
	target := filepath.Join(t.TempDir(), "exports", "csv")
	v := New()
	v.Directory("export.dir", target, false)
	require.True(t, v.IsValid(), "err: %v", v.Err())

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLogLevels(t *testing.T) {
	v := New()
	for _, lvl := range LogLevels() {
		v.OneOf("log_level", lvl, LogLevels())
	}
	require.True(t, v.IsValid())

	v.OneOf("log_level", "verbose", LogLevels())
	assert.Equal(t, []Error{{Field: "log_level", Message: `value must be one of [trace debug info warn error], got "verbose"`, Value: "verbose"}}, v.Errors())
}
