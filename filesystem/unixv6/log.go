package unixv6

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// newLogger builds a dedicated logrus.Logger for one mounted filesystem,
// never the package-global logrus singleton, so that multiple images
// mounted in the same process (as tests do) don't interleave log fields.
// Every line it emits carries the mount's id for correlation.
func newLogger(mountID uuid.UUID) *logrus.Entry {
	l := logrus.New()
	return l.WithField("mount_id", mountID.String())
}
