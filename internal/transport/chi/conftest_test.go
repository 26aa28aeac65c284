package chi

import (
	"context"
	"net/http/httptest"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
	answeruc "github.com/eldadyikne/portfolio-agent/internal/usecase/answer"
	healthuc "github.com/eldadyikne/portfolio-agent/internal/usecase/health"
)

type fakeChat struct {
	completion answeruc.Completion
	sources    []string
	deltas     []string
	err        error
	midStream  bool // return err after sources and deltas were delivered
	calls      int
}

func (f *fakeChat) Complete(context.Context, string) (answeruc.Completion, error) {
	f.calls++
	if f.err != nil {
		return answeruc.Completion{}, f.err
	}
	return f.completion, nil
}

func (f *fakeChat) Stream(
	_ context.Context, _ string,
	onSources func([]string) error,
	onDelta func(string) error,
) error {
	f.calls++
	if f.err != nil && !f.midStream {
		return f.err
	}
	if err := onSources(f.sources); err != nil {
		return err
	}
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return f.err
}

type fakeRecordsService struct {
	projects    []domain.Project
	skills      []domain.Skill
	experiences []domain.WorkExperience
	err         error

	gotFeaturedOnly bool
}

func (f *fakeRecordsService) Projects(_ context.Context, featuredOnly bool) ([]domain.Project, error) {
	f.gotFeaturedOnly = featuredOnly
	return f.projects, f.err
}

func (f *fakeRecordsService) Skills(_ context.Context, featuredOnly bool) ([]domain.Skill, error) {
	f.gotFeaturedOnly = featuredOnly
	return f.skills, f.err
}

func (f *fakeRecordsService) Experiences(_ context.Context, featuredOnly bool) ([]domain.WorkExperience, error) {
	f.gotFeaturedOnly = featuredOnly
	return f.experiences, f.err
}

type fakeCorpus struct {
	paragraphs []string
}

func (f *fakeCorpus) DocumentParagraphs(context.Context) []string { return f.paragraphs }

type fakeBroker struct {
	secret string
	err    error
}

func (f *fakeBroker) ClientSecret(context.Context) (string, error) { return f.secret, f.err }

type fakeHealth struct {
	report healthuc.Report
}

func (f *fakeHealth) Check(context.Context) healthuc.Report { return f.report }

type testDeps struct {
	chat    *fakeChat
	records *fakeRecordsService
	corpus  *fakeCorpus
	broker  *fakeBroker
	health  *fakeHealth
}

func newTestServer(deps testDeps) *httptest.Server {
	if deps.chat == nil {
		deps.chat = &fakeChat{}
	}
	if deps.records == nil {
		deps.records = &fakeRecordsService{}
	}
	if deps.corpus == nil {
		deps.corpus = &fakeCorpus{}
	}
	if deps.broker == nil {
		deps.broker = &fakeBroker{}
	}
	if deps.health == nil {
		deps.health = &fakeHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}

	s := NewServer(deps.chat, deps.records, deps.corpus, deps.broker, deps.health, zap.NewNop())
	r := gochi.NewRouter()
	s.Register(r)
	return httptest.NewServer(r)
}
