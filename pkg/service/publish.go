package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/headline/pkg/publish"
)

// PublishArticle publishes one article.
func (s *Service) PublishArticle(ctx context.Context, req publish.ArticleRequest) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	if err := s.confine(append([]string{req.Cover}, req.Images...)...); err != nil {
		return failed(err.Error())
	}
	return s.publishArticle(ctx, req)
}

// PublishMicroPost publishes one micro-post.
func (s *Service) PublishMicroPost(ctx context.Context, req publish.MicroPostRequest) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	if err := s.confine(req.Images...); err != nil {
		return failed(err.Error())
	}
	return s.publishMicro(ctx, req)
}

func (s *Service) publishArticle(ctx context.Context, req publish.ArticleRequest) Response {
	if err := req.Validate(); err != nil {
		return failed(validationMessage(err))
	}
	req.Images = s.compress(req.Images)
	if req.Cover != "" {
		req.Cover = s.compress([]string{req.Cover})[0]
	}
	return s.run(ctx, func(ctx context.Context) publish.Outcome {
		return s.deps.Publisher.PublishArticle(ctx, req)
	})
}

func (s *Service) publishMicro(ctx context.Context, req publish.MicroPostRequest) Response {
	if err := req.Validate(); err != nil {
		return failed(validationMessage(err))
	}
	req.Images = s.compress(req.Images)
	return s.run(ctx, func(ctx context.Context) publish.Outcome {
		return s.deps.Publisher.PublishMicroPost(ctx, req)
	})
}

// run executes one workflow under the concurrency cap and records it.
func (s *Service) run(ctx context.Context, fn func(context.Context) publish.Outcome) Response {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return failed(fmt.Sprintf("发布已取消: %v", err))
	}
	out := func() publish.Outcome {
		defer s.sem.Release(1)
		s.deps.Metrics.Acquired()
		defer s.deps.Metrics.Released()
		return fn(ctx)
	}()

	if s.deps.Ledger != nil {
		if _, err := s.deps.Ledger.Record(context.WithoutCancel(ctx), &out); err != nil {
			s.logger.Warnf("failed to record run %s: %v", out.RunID, err)
		}
	}
	return outcomeResponse(out)
}

func outcomeResponse(out publish.Outcome) Response {
	msg := out.Message
	if publish.IsAuth(out.Err) {
		msg = publish.AuthMessage
	}
	if msg == "" {
		if out.Succeeded {
			msg = "发布成功"
		} else {
			msg = "发布失败"
		}
	}
	return Response{Success: out.Succeeded, Message: msg, Data: out}
}

// compress shrinks every image above the configured bound. Paths that cannot
// be compressed are returned unchanged.
func (s *Service) compress(paths []string) []string {
	if s.deps.Compressor == nil || s.opts.MaxImageBytes <= 0 || len(paths) == 0 {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = s.deps.Compressor.Compress(p, s.opts.MaxImageBytes)
	}
	return out
}

// confine rejects caller-supplied paths outside the allowed directories.
// Downloaded images are not checked.
func (s *Service) confine(paths ...string) error {
	if s.deps.Guard == nil {
		return nil
	}
	return s.deps.Guard.Check(paths...)
}

// validationMessage strips the sentinel prefix from a request error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), publish.ErrInvalidRequest.Error()+": ")
}
