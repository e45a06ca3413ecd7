package logger_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/streamlens/streamlens/pkg/logger"
)

var _ = Describe("Logger", func() {
	It("writes to the given writer", func() {
		var buf bytes.Buffer
		log := logger.NewLoggerWithWriters(false, &buf)

		log.Info("server started")
		Expect(buf.String()).To(ContainSubstring("server started"))
		Expect(buf.String()).To(ContainSubstring("INFO"))
	})

	It("suppresses debug output at the default level", func() {
		var buf bytes.Buffer
		log := logger.NewLoggerWithWriters(false, &buf)

		log.Debug("noisy detail")
		Expect(buf.String()).To(BeEmpty())
	})

	It("emits debug output when debug is enabled", func() {
		var buf bytes.Buffer
		log := logger.NewLoggerWithWriters(true, &buf)

		log.Debug("noisy detail")
		Expect(buf.String()).To(ContainSubstring("noisy detail"))
	})

	It("fans out to multiple writers", func() {
		var a, b bytes.Buffer
		log := logger.NewLoggerWithWriters(false, &a, &b)

		log.Warn("disk almost full")
		Expect(a.String()).To(ContainSubstring("disk almost full"))
		Expect(b.String()).To(ContainSubstring("disk almost full"))
	})
})
