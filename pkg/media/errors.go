package media

import "fmt"

// ResourceError reports a local file that cannot be used for upload.
type ResourceError struct {
	Path   string
	Reason string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("image %s: %s", e.Path, e.Reason)
}
