package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/session"
)

// Seed navigates b to the platform origin and injects the session's cookies
// one at a time. Entries without a name, without a domain, or scoped outside
// the platform are skipped, as are entries the browser rejects. It returns
// the number of cookies injected; only a navigation failure is an error.
func Seed(ctx context.Context, b Browser, sess session.Session, origin string, logger *logging.Logger) (int, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	root := strings.TrimRight(origin, "/") + "/"
	if err := b.Page().Goto(root); err != nil {
		return 0, fmt.Errorf("open %s before seeding: %w", root, err)
	}

	seeded := 0
	for _, c := range sess.Cookies {
		if !c.Valid() {
			logger.Warnf("skipping malformed cookie %q (domain %q)", c.Name, c.Domain)
			continue
		}
		if err := b.AddCookie(c); err != nil {
			logger.Warnf("skipping cookie %q: %v", c.Name, err)
			continue
		}
		seeded++
	}

	logger.Infof("seeded %d of %d cookies", seeded, len(sess.Cookies))
	return seeded, nil
}
