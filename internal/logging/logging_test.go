package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log, err := New(&buf, "warn", "json")
	req.NoError(err)

	log.Info("dropped")
	log.WithField("user_id", 7).Warn("kept")

	var line map[string]any
	req.NoError(json.Unmarshal(buf.Bytes(), &line), buf.String())
	req.Equal("kept", line["msg"])
	req.Equal("warning", line["level"])
	req.EqualValues(7, line["user_id"])

	_, err = New(&buf, "loud", "json")
	req.Error(err)
	_, err = New(&buf, "info", "xml")
	req.Error(err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, hook := logtest.NewNullLogger()
	r := gin.New()
	r.Use(Middleware(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	cases := []struct {
		path  string
		level logrus.Level
	}{
		{"/ok", logrus.InfoLevel},
		{"/missing", logrus.WarnLevel},
		{"/boom", logrus.ErrorLevel},
	}
	for _, tc := range cases {
		hook.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))
		entry := hook.LastEntry()
		require.NotNil(t, entry, tc.path)
		require.Equal(t, tc.level, entry.Level, tc.path)
		require.Equal(t, tc.path, entry.Data["path"])
		require.Equal(t, http.MethodGet, entry.Data["method"])
	}
}
