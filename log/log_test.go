package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewLogWithOptions(t *testing.T) {
	Convey("测试 NewLogWithOptions 方法", t, func() {
		Convey("nil options", func() {
			l, err := NewLogWithOptions(nil)
			So(err, ShouldNotBeNil)
			So(l, ShouldBeNil)
		})

		Convey("json 格式输出带字段", func() {
			var buf bytes.Buffer
			l, err := NewLogWithOptions(&Options{
				Level:  "debug",
				Format: "json",
				Writer: &buf,
				Fields: map[string]any{"component": "aggregator"},
			})
			So(err, ShouldBeNil)

			l.With("index", "posts").Debug("search", "type", "post")

			var record map[string]any
			So(json.Unmarshal(buf.Bytes(), &record), ShouldBeNil)
			So(record["msg"], ShouldEqual, "search")
			So(record["level"], ShouldEqual, "DEBUG")
			So(record["component"], ShouldEqual, "aggregator")
			So(record["index"], ShouldEqual, "posts")
			So(record["type"], ShouldEqual, "post")
		})

		Convey("级别过滤", func() {
			var buf bytes.Buffer
			l, err := NewLogWithOptions(&Options{Level: "warn", Writer: &buf})
			So(err, ShouldBeNil)

			l.Info("hidden")
			l.WithGroup("client").Warn("shown", "status", 500)
			So(buf.String(), ShouldNotContainSubstring, "hidden")
			So(buf.String(), ShouldContainSubstring, "shown")
			So(buf.String(), ShouldContainSubstring, "client.status=500")
		})

		Convey("文件输出", func() {
			path := filepath.Join(t.TempDir(), "esagg.log")
			l, err := NewLogWithOptions(&Options{Output: path})
			So(err, ShouldBeNil)
			l.Error("failed")

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(strings.Contains(string(data), "failed"), ShouldBeTrue)
		})

		Convey("无效级别", func() {
			_, err := NewLogWithOptions(&Options{Level: "trace"})
			So(err, ShouldNotBeNil)
		})

		Convey("无效格式", func() {
			_, err := NewLogWithOptions(&Options{Format: "xml"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDefault(t *testing.T) {
	Convey("测试默认日志器", t, func() {
		So(Default(), ShouldNotBeNil)
		So(Discard(), ShouldNotBeNil)
	})
}
