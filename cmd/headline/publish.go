package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/headline/pkg/adapter"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/rpc"
	"github.com/entrhq/headline/pkg/service"
)

func newPublishCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an article, a micro-post or a batch of adapted records",
	}
	cmd.AddCommand(
		newPublishArticleCommand(a),
		newPublishMicroCommand(a),
		newPublishBatchCommand(a),
	)
	return cmd
}

func newPublishArticleCommand(a *app) *cobra.Command {
	var (
		args        rpc.ArticleArgs
		contentFile string
		original    bool
	)
	cmd := &cobra.Command{
		Use:   "article",
		Short: "Publish a long-form article",
		Example: `  headline publish article --title "周末随笔" --content-file post.txt --images a.jpg,b.jpg
  cat post.txt | headline publish article -t "周末随笔" -c - --original=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readText(cmd, args.Content, contentFile)
			if err != nil {
				return err
			}
			args.Content = content
			if cmd.Flags().Changed("original") {
				args.Original = &original
			}

			req, err := args.Request()
			if err != nil {
				return printResponse(cmd.OutOrStdout(), rpc.Rejected(err))
			}
			return a.withService(cmd.Context(), func(svc *service.Service, _ *logging.Logger) error {
				return printResponse(cmd.OutOrStdout(), svc.PublishArticle(cmd.Context(), req))
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&args.Title, "title", "t", "", "Article title (2 to 30 characters)")
	f.StringVarP(&args.Content, "content", "c", "", "Article body, or - to read stdin")
	f.StringVar(&contentFile, "content-file", "", "Read the article body from a file")
	f.StringSliceVar(&args.Images, "images", nil, "Local image paths")
	f.StringSliceVar(&args.Tags, "tags", nil, "Tags")
	f.StringVar(&args.Category, "category", "", "Category")
	f.StringVar(&args.CoverImage, "cover", "", "Cover image path (defaults to the first image)")
	f.StringVar(&args.PublishTime, "publish-time", "", "Scheduled time, YYYY-MM-DD HH:MM:SS")
	f.BoolVar(&original, "original", true, "Declare the article original")
	f.SortFlags = false
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newPublishMicroCommand(a *app) *cobra.Command {
	var (
		args        rpc.MicroArgs
		contentFile string
	)
	cmd := &cobra.Command{
		Use:     "micro",
		Aliases: []string{"micro-post"},
		Short:   "Publish a micro-post",
		Example: `  headline publish micro --content "今天天气不错" --images sky.jpg --topic 生活`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readText(cmd, args.Content, contentFile)
			if err != nil {
				return err
			}
			args.Content = content

			req, err := args.Request()
			if err != nil {
				return printResponse(cmd.OutOrStdout(), rpc.Rejected(err))
			}
			return a.withService(cmd.Context(), func(svc *service.Service, _ *logging.Logger) error {
				return printResponse(cmd.OutOrStdout(), svc.PublishMicroPost(cmd.Context(), req))
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&args.Content, "content", "c", "", "Post text, or - to read stdin")
	f.StringVar(&contentFile, "content-file", "", "Read the post text from a file")
	f.StringSliceVar(&args.Images, "images", nil, "Local image paths (at most 9)")
	f.StringVar(&args.Topic, "topic", "", "Topic, added as #topic#")
	f.StringVar(&args.Location, "location", "", "Location")
	f.StringVar(&args.PublishTime, "publish-time", "", "Scheduled time, YYYY-MM-DD HH:MM:SS")
	f.SortFlags = false
	return cmd
}

func newPublishBatchCommand(a *app) *cobra.Command {
	var (
		file   string
		folder string
		feishu bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Adapt records exported from another platform and publish them one by one",
		Long: "batch reads a JSON array of records with title/content/image_url fields (or their aliases) " +
			"and publishes each as an article or, when short, as a micro-post.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := loadRecords(file)
			if err != nil {
				return err
			}
			return a.withService(cmd.Context(), func(svc *service.Service, _ *logging.Logger) error {
				out := cmd.OutOrStdout()
				switch {
				case dryRun:
					var errs []error
					for _, rec := range records {
						errs = append(errs, printResponse(out, svc.PreviewAdapt(rec)))
					}
					return errors.Join(errs...)
				case feishu:
					return printResponse(out, svc.PublishAdaptedFeishuBatch(cmd.Context(), records, folder))
				default:
					return printResponse(out, svc.PublishAdaptedBatch(cmd.Context(), records, folder))
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "JSON file holding an array of records")
	f.StringVar(&folder, "download-folder", "", "Folder for downloaded images")
	f.BoolVar(&feishu, "feishu", false, "Records come from a Feishu table export")
	f.BoolVar(&dryRun, "dry-run", false, "Show the adapted records without publishing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// loadRecords reads a JSON array of records.
func loadRecords(path string) ([]adapter.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []adapter.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse records in %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records in %s", path)
	}
	return records, nil
}
