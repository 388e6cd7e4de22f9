package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var (
	log         = zap.Must(zap.NewProduction())
	serviceName = "default"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Sync сбрасывает буферы перед выходом процесса.
func Sync() {
	_ = log.Sync()
}

func Info(format string, args ...interface{}) {
	log.With(
		zap.String("service", serviceName),
	).Info(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	log.With(
		zap.String("service", serviceName),
	).Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	log.With(
		zap.String("service", serviceName),
	).Fatal(fmt.Sprintf(format, args...))
}
