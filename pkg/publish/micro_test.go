package publish

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/headline/pkg/browser/browsertest"
)

type microPage struct {
	editor, publish *browsertest.Element
}

func mountMicroEditor(h *harness, editorTag string) microPage {
	sel := DefaultSelectors().Micro
	p := microPage{
		editor:  browsertest.NewElement(editorTag),
		publish: browsertest.NewElement("button"),
	}
	if editorTag == "textarea" {
		h.page.Set(sel.Editor[1], p.editor)
	} else {
		h.page.Set(sel.Editor[0], p.editor)
	}
	h.page.Set(sel.Publish[0], p.publish)
	return p
}

func TestPublishMicroPost_HappyPath(t *testing.T) {
	h := newHarness(t, loggedInStore())
	p := mountMicroEditor(h, "div")
	sel := DefaultSelectors().Micro

	marker := browsertest.NewElement("span")
	marker.Hidden = true
	p.publish.OnClick = func() { h.page.Set(sel.SuccessMarker[0], marker) }

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{
		Body:  "今天天气很好\n出去走走",
		Topic: "日常",
	})

	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, "微头条发布成功", out.Message)
	assert.Equal(t, KindMicro, out.Kind)
	assert.Equal(t, "<p>#日常# 今天天气很好</p><p>出去走走</p>", p.editor.CurrentValue())
	assert.Equal(t, 1, p.publish.ClickCount())
	assert.Equal(t, []string{DefaultOrigin + "/", DefaultMicroURL}, h.page.Visited)

	images, _ := out.Step(StepImages)
	assert.Equal(t, StepSkipped, images.Status)
	confirm, _ := out.Step(StepConfirm)
	assert.Equal(t, StepSkipped, confirm.Status)
	assert.Equal(t, 1, h.browser.Closed())
}

func TestPublishMicroPost_TextareaEditorGetsPlainValue(t *testing.T) {
	h := newHarness(t, loggedInStore())
	p := mountMicroEditor(h, "textarea")
	p.publish.OnClick = func() { h.page.SetURL("https://mp.toutiao.com/profile_v4/ugc/weitt-success") }

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "第一行\n第二行"})

	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, "第一行\n第二行", p.editor.CurrentValue())
}

func TestPublishMicroPost_SuccessFromMarkup(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"toast class", `<div class="byte-message byte-message-success">已发布</div>`},
		{"success text", `<script>window.state = {"status":"SUCCESS"}</script>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, loggedInStore())
			mountMicroEditor(h, "div")
			h.page.SetContent(tt.content)

			out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "正文"})
			assert.True(t, out.Succeeded, out.Message)
		})
	}
}

func TestPublishMicroPost_NoSuccessIndicationFails(t *testing.T) {
	h := newHarness(t, loggedInStore())
	mountMicroEditor(h, "div")
	h.page.SetContent(`<div class="byte-message-error">内容违规</div>`)

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "正文"})

	require.False(t, out.Succeeded)
	var se *StepError
	require.True(t, errors.As(out.Err, &se))
	assert.Equal(t, StepSuccess, se.Step)
	assert.FileExists(t, out.Screenshot)
	assert.FileExists(t, out.PageDump)
}

func TestPublishMicroPost_ImagesCappedAtNine(t *testing.T) {
	h := newHarness(t, loggedInStore())
	p := mountMicroEditor(h, "div")
	sel := DefaultSelectors().Micro
	button := browsertest.NewElement("button")
	input := browsertest.NewElement("input")
	input.Hidden = true
	h.page.Set(sel.ImageButton[0], button)
	h.page.Set(sel.FileInput[0], input)
	p.publish.OnClick = func() { h.page.SetURL(DefaultMicroURL + "?from=weitt-success") }

	var images []string
	for i := 0; i < 12; i++ {
		images = append(images, writeImage(t, "img.jpg"))
	}

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "九宫格", Images: images})

	require.True(t, out.Succeeded, out.Message)
	step, _ := out.Step(StepImages)
	assert.Equal(t, StepApplied, step.Status)
	assert.Equal(t, images[:MaxMicroImages], input.Files)
	assert.Equal(t, 1, button.ClickCount())
}

func TestPublishMicroPost_ImageFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, loggedInStore())
	p := mountMicroEditor(h, "div")
	p.publish.OnClick = func() { h.page.SetContent("<p>success</p>") }

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{
		Body:   "正文",
		Images: []string{writeImage(t, "a.png")},
	})

	require.True(t, out.Succeeded, out.Message)
	step, _ := out.Step(StepImages)
	assert.Equal(t, StepFailedNonFatal, step.Status)
}

func TestPublishMicroPost_ConfirmDialogHandled(t *testing.T) {
	h := newHarness(t, loggedInStore())
	p := mountMicroEditor(h, "div")
	confirm := browsertest.NewElement("button")
	confirm.OnClick = func() { h.page.SetContent("success") }
	p.publish.OnClick = func() { h.page.Set(DefaultSelectors().Micro.Confirm[0], confirm) }

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "正文"})

	require.True(t, out.Succeeded, out.Message)
	step, _ := out.Step(StepConfirm)
	assert.Equal(t, StepApplied, step.Status)
	assert.Equal(t, 1, confirm.ClickCount())
}

func TestPublishMicroPost_EditorMissing(t *testing.T) {
	h := newHarness(t, loggedInStore())

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "正文"})

	assert.False(t, out.Succeeded)
	assert.Contains(t, out.Message, StepEditor)
	assert.Equal(t, 1, h.browser.Closed())
}

func TestPublishMicroPost_HashtagBodyReachesSuccess(t *testing.T) {
	h := newHarness(t, loggedInStore())
	p := mountMicroEditor(h, "div")
	marker := browsertest.NewElement("span")
	p.publish.OnClick = func() { h.page.Set(DefaultSelectors().Micro.SuccessMarker[0], marker) }

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "hello #test#"})

	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, "<p>hello #test#</p>", p.editor.CurrentValue())
	success, _ := out.Step(StepSuccess)
	assert.Equal(t, StepDone, success.Status)
}

func TestPublishMicroPost_CallerCancelAfterPublishStillSucceeds(t *testing.T) {
	h := newHarness(t, loggedInStore())
	h.engine.cfg.Timing.AfterField = 30 * time.Millisecond
	p := mountMicroEditor(h, "div")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.publish.OnClick = func() {
		h.page.SetContent("<p>success</p>")
		cancel()
	}

	out := h.engine.PublishMicroPost(ctx, MicroPostRequest{Body: "正文"})

	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, 1, p.publish.ClickCount())
}

func TestPublishMicroPost_UnregisteredEditorFails(t *testing.T) {
	for _, tag := range []string{"div", "textarea"} {
		t.Run(tag, func(t *testing.T) {
			h := newHarness(t, loggedInStore())
			p := mountMicroEditor(h, tag)
			p.editor.DropWrites = true

			out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{Body: "正文"})

			require.False(t, out.Succeeded)
			var se *StepError
			require.True(t, errors.As(out.Err, &se))
			assert.Equal(t, StepEditor, se.Step)
			assert.ErrorIs(t, out.Err, errNotRegistered)
			assert.Zero(t, p.publish.ClickCount())
		})
	}
}

func TestPublishMicroPost_LocationAndScheduleRecorded(t *testing.T) {
	h := newHarness(t, loggedInStore())
	p := mountMicroEditor(h, "div")
	p.publish.OnClick = func() { h.page.SetContent("success") }
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local)

	out := h.engine.PublishMicroPost(context.Background(), MicroPostRequest{
		Body:        "正文",
		Location:    "杭州",
		ScheduledAt: &at,
	})

	require.True(t, out.Succeeded, out.Message)
	location, ok := out.Step(StepLocation)
	require.True(t, ok)
	assert.Equal(t, StepSkipped, location.Status)
	assert.Equal(t, "recorded only: 杭州", location.Detail)

	schedule, ok := out.Step(StepSchedule)
	require.True(t, ok)
	assert.Equal(t, StepSkipped, schedule.Status)
	assert.Equal(t, "recorded only: 2024-05-01 10:30", schedule.Detail)
}

func TestMicroPostRequest_Validate(t *testing.T) {
	assert.NoError(t, MicroPostRequest{Body: strings.Repeat("字", MaxMicroRunes)}.Validate())
	assert.ErrorIs(t, MicroPostRequest{Body: strings.Repeat("字", MaxMicroRunes+1)}.Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, MicroPostRequest{Body: " "}.Validate(), ErrInvalidRequest)
}

func TestMicroPostRequest_Text(t *testing.T) {
	assert.Equal(t, "正文", MicroPostRequest{Body: "正文"}.Text())
	assert.Equal(t, "#话题# 正文", MicroPostRequest{Body: "正文", Topic: "话题"}.Text())
	assert.Equal(t, "#话题# 正文", MicroPostRequest{Body: "正文", Topic: "#话题#"}.Text())
}

func TestSuccessInMarkup(t *testing.T) {
	toasts := DefaultSelectors().Micro.SuccessToasts
	assert.True(t, SuccessInMarkup(`<div class="toast-success"></div>`, toasts))
	assert.True(t, SuccessInMarkup(`<div class="x-publish-success-y"></div>`, toasts))
	assert.False(t, SuccessInMarkup(`<div class="toast-error">失败</div>`, toasts))
}
