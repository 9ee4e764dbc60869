package log

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logcomm "github.com/TopiaNetwork/dacore/log/common"
)

func TestCreateMainLogger(t *testing.T) {
	i := 100
	str := "TestCreate"
	log, err := CreateMainLogger(logcomm.DebugLevel, JSONFormat, StdErrOutput, "")
	assert.Equal(t, err, nil)
	log.Debug("TestCreateMainLogger ok")
	log.Info("TestCreateMainLogger ok")
	log.Infof("TestCreateMainLogger ok i=%d, str=%s", i, str)

	log.UpdateLoggerLevel(logcomm.InfoLevel)

	log.Debug("TestCreateMainLogger ok after update")
	log.Info("TestCreateMainLogger ok after update")
}

func TestCreateModuleLogger(t *testing.T) {
	var buf bytes.Buffer
	log := CreateWriterLogger(logcomm.DebugLevel, &buf)

	ml := CreateModuleLogger(logcomm.InfoLevel, "consensus", log)
	ml.Debug("filtered by module level")
	ml.Info("module logger ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "consensus", entry["module"])
	assert.Equal(t, "module logger ok", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestUpdateLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := CreateWriterLogger(logcomm.InfoLevel, &buf)

	log.Trace("hidden")
	assert.Zero(t, buf.Len())

	log.UpdateLoggerLevel(logcomm.TraceLevel)
	log.Tracef("visible %d", 1)
	assert.Contains(t, buf.String(), "visible 1")
}

func TestFileLogOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "node.log")
	log, err := CreateMainLogger(logcomm.InfoLevel, TextFormat, FileLogOutput, path)
	require.NoError(t, err)
	log.Info("written to file")

	_, err = CreateMainLogger(logcomm.InfoLevel, TextFormat, FileLogOutput, "")
	assert.Error(t, err)
}

func TestParseFormatAndOutput(t *testing.T) {
	f, err := ParseLogFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONFormat, f)

	o, err := ParseLogOutput("file")
	require.NoError(t, err)
	assert.Equal(t, FileLogOutput, o)

	_, err = ParseLogFormat("xml")
	assert.Error(t, err)
	_, err = ParseLogOutput("syslog")
	assert.Error(t, err)
}
