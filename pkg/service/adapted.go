package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/entrhq/headline/pkg/adapter"
	"github.com/entrhq/headline/pkg/publish"
)

// BatchItem is the result of one record of a batch.
type BatchItem struct {
	Index         int      `json:"index"`
	Title         string   `json:"title"`
	PublishResult Response `json:"publish_result"`
	ImageCount    int      `json:"image_count"`
}

// BatchSummary aggregates a batch.
type BatchSummary struct {
	TotalRecords int         `json:"total_records"`
	SuccessCount int         `json:"success_count"`
	FailedCount  int         `json:"failed_count"`
	SuccessRate  float64     `json:"success_rate"`
	Details      []BatchItem `json:"details"`
}

// BatchResult is the payload of the batch operations.
type BatchResult struct {
	Summary          BatchSummary `json:"summary"`
	ConvertedRecords int          `json:"converted_records_count,omitempty"`
}

// Summarize builds the batch summary. SuccessRate is a percentage rounded to
// two decimals.
func Summarize(items []BatchItem) BatchSummary {
	sum := BatchSummary{TotalRecords: len(items), Details: items}
	for _, it := range items {
		if it.PublishResult.Success {
			sum.SuccessCount++
		}
	}
	sum.FailedCount = sum.TotalRecords - sum.SuccessCount
	if sum.TotalRecords > 0 {
		rate := float64(sum.SuccessCount) / float64(sum.TotalRecords) * 100
		sum.SuccessRate = math.Round(rate*100) / 100
	}
	if sum.Details == nil {
		sum.Details = []BatchItem{}
	}
	return sum
}

// Preview is the payload of PreviewAdapt.
type Preview struct {
	Original  adapter.Record `json:"original_data"`
	Converted adapter.Draft  `json:"converted_data"`
	Route     publish.Kind   `json:"route"`
}

// PreviewAdapt converts a record without publishing it. Route assumes every
// referenced image downloads successfully.
func (s *Service) PreviewAdapt(rec adapter.Record) Response {
	d := adapter.Adapt(rec)
	plan := adapter.Route(d, d.Image.URLs)
	return ok("格式转换成功", Preview{Original: rec, Converted: d, Route: plan.Kind})
}

// PublishAdaptedSingle publishes one record given as title, content and an
// optional image reference. The record's own result is returned.
func (s *Service) PublishAdaptedSingle(ctx context.Context, rec adapter.Record, folder string) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	items := s.publishRecords(ctx, []adapter.Draft{adapter.Adapt(rec)}, folder)
	if len(items) == 0 {
		return failed("发布处理失败")
	}
	return items[0].PublishResult
}

// PublishAdaptedBatch publishes records in the canonical field layout.
func (s *Service) PublishAdaptedBatch(ctx context.Context, records []adapter.Record, folder string) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	drafts := make([]adapter.Draft, len(records))
	for i, rec := range records {
		drafts[i] = adapter.Adapt(rec)
	}
	sum := Summarize(s.publishRecords(ctx, drafts, folder))
	return ok(fmt.Sprintf("批量发布完成，成功 %d/%d 条", sum.SuccessCount, sum.TotalRecords), BatchResult{Summary: sum})
}

// PublishAdaptedFeishuBatch publishes records exported from a Feishu table.
func (s *Service) PublishAdaptedFeishuBatch(ctx context.Context, records []adapter.Record, folder string) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	drafts := make([]adapter.Draft, len(records))
	for i, rec := range records {
		drafts[i] = adapter.AdaptFeishu(rec)
	}
	s.logger.Infof("converted %d feishu records", len(drafts))
	sum := Summarize(s.publishRecords(ctx, drafts, folder))
	return ok(fmt.Sprintf("飞书记录批量发布完成，成功 %d/%d 条", sum.SuccessCount, sum.TotalRecords),
		BatchResult{Summary: sum, ConvertedRecords: len(drafts)})
}

// publishRecords publishes drafts one after another with the configured
// spacing between them. Records left when ctx ends are reported as failed.
func (s *Service) publishRecords(ctx context.Context, drafts []adapter.Draft, folder string) []BatchItem {
	if strings.TrimSpace(folder) == "" {
		folder = s.opts.DownloadDir
	}
	items := make([]BatchItem, 0, len(drafts))
	for i, d := range drafts {
		if i > 0 {
			if err := s.sleep(ctx, s.opts.BatchSpacing); err != nil {
				for j := i; j < len(drafts); j++ {
					items = append(items, BatchItem{
						Index:         j + 1,
						Title:         drafts[j].Title,
						PublishResult: failed(fmt.Sprintf("处理异常: %v", err)),
					})
				}
				break
			}
		}

		s.logger.Infof("processing record %d/%d: %s", i+1, len(drafts), d.Title)
		var images []string
		if !d.Image.Empty() {
			images = s.deps.Resolver.Resolve(ctx, d.Image, folder)
			if len(images) == 0 {
				s.logger.Warnf("record %d: no image could be downloaded", i+1)
			}
		}

		resp, route := s.publishDraft(ctx, d, images)
		label := string(route)
		if label == "" {
			label = "rejected"
		}
		s.deps.Metrics.BatchRecord(label, resp.Success)
		if resp.Success {
			s.logger.Infof("record %d published", i+1)
		} else {
			s.logger.Errorf("record %d failed: %s", i+1, resp.Message)
		}
		items = append(items, BatchItem{Index: i + 1, Title: d.Title, PublishResult: resp, ImageCount: len(images)})
	}
	return items
}

// publishDraft routes one adapted draft to the matching workflow.
func (s *Service) publishDraft(ctx context.Context, d adapter.Draft, images []string) (Response, publish.Kind) {
	if d.Title == "" {
		return failed("标题不能为空"), ""
	}
	if d.Body == "" {
		return failed("内容不能为空"), ""
	}
	plan := adapter.Route(d, images)
	if plan.Micro != nil {
		return s.publishMicro(ctx, *plan.Micro), plan.Kind
	}
	plan.Article.Original = true
	return s.publishArticle(ctx, *plan.Article), plan.Kind
}
