package policy

import "context"

// Service supplies the organization's default policy. The scan pipeline only
// reads from it; storage and distribution live behind this seam.
type Service interface {
	DefaultPolicy(ctx context.Context) (*Document, error)
}

type staticService struct {
	doc *Document
}

// NewStaticService wraps a fixed document as a Service. A nil document means
// the built-in default.
func NewStaticService(doc *Document) Service {
	if doc == nil {
		doc = Default()
	}
	return &staticService{doc: doc}
}

func (s *staticService) DefaultPolicy(ctx context.Context) (*Document, error) {
	// Hand out a copy so callers can't mutate the shared snapshot.
	return Merge(s.doc, nil), nil
}

type fileService struct {
	path string
}

// NewFileService loads the default policy from a YAML file on every call, so
// edits take effect without a restart. A missing file falls back to the
// built-in default.
func NewFileService(path string) Service {
	return &fileService{path: path}
}

func (s *fileService) DefaultPolicy(ctx context.Context) (*Document, error) {
	return Load(s.path)
}
