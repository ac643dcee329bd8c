// internal/pkg/logger/logger_test.go
package logger

import (
	"bytes"
	"testing"

	"github.com/go-zookeeper/zk"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// Printf 风格的适配面给 go-zookeeper 用
var _ zk.Logger = (*Logger)(nil)

func TestPrintfStyleAdapters(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{zerolog.New(&buf)}

	l.Printf("connected to %s", "zk1:2181")
	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), "connected to zk1:2181")

	buf.Reset()
	l.Errorf("write failed: %d retries", 3)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "write failed: 3 retries")
}
