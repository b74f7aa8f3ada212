package runtime

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// traced runs fn in an X-Ray subsegment of the invocation segment Lambda opens
func traced(ctx context.Context, enabled bool, name string, fn func(context.Context) error) error {
	if !enabled {
		return fn(ctx)
	}
	return xray.Capture(ctx, name, fn)
}
