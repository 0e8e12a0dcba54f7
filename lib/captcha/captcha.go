// Package captcha solves the portal's arithmetic captcha images by
// sending them to a vision-capable inference endpoint.
package captcha

import (
	"context"
	"fmt"
)

var ErrCaptchaUnsolved = fmt.Errorf("captcha could not be solved")

type Solver interface {
	// returns the numeric answer to the arithmetic expression shown in
	// the image, e.g. "42" for an image of "25+17=?"
	Solve(ctx context.Context, image []byte) (string, error)
}
