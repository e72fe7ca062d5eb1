package services

import (
	"context"

	"github.com/VonteruManoj/GenMan/internal/apierr"
	"github.com/VonteruManoj/GenMan/internal/clients/configsvc"
	"github.com/VonteruManoj/GenMan/internal/clients/connectorsvc"
	domain "github.com/VonteruManoj/GenMan/internal/domain/search"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/repos/search"
	searchfilters "github.com/VonteruManoj/GenMan/internal/search"
)

const (
	noContextAnswer = "There is no context to answer this question."

	defaultBestN = 5

	// Returned instead of a model completion when running locally, so
	// the flow stays testable without an API key spend.
	localAnswer = "Lorem ipsum dolor sit amet, consectetur" +
		" adipiscing elit. Integer ut elit id leo imperdiet" +
		" placerat. Nam ligula odio, auctor eu velit quis," +
		" tincidunt fringilla quam. Etiam fermentum ligula" +
		" vel dolor ultricies, a viverra nulla aliquet." +
		" Duis elit mi, ornare vel pulvinar ac, cursus" +
		" vitae elit. Ut auctor lacinia tempor. Nulla" +
		" fermentum libero id neque ullamcorper, eget" +
		" ornare tellus bibendum. Duis suscipit eleifend" +
		" elementum. Pellentesque arcu est, mattis vitae" +
		" elit eu, dapibus sollicitudin ante. Nunc" +
		" molestie lobortis magna, eu mattis" +
		" libero mollis auctor."
)

// Summarizer produces a grounded answer from context snippets.
type Summarizer interface {
	Summarize(ctx context.Context, query string, snippets []string) (string, error)
}

// SummarizeResult is the summarize response body.
type SummarizeResult struct {
	Answer  string       `json:"answer"`
	Options []OptionView `json:"options"`
}

type SummarizeAnswerService struct {
	log          *logger.Logger
	embedder     Embedder
	summarizer   Summarizer
	repo         search.Repo
	connectorSvc connectorsvc.Client
	configSvc    configsvc.Client
	appEnv       string
}

func NewSummarizeAnswerService(
	baseLog *logger.Logger,
	embedder Embedder,
	summarizer Summarizer,
	repo search.Repo,
	connectorSvc connectorsvc.Client,
	configSvc configsvc.Client,
	appEnv string,
) *SummarizeAnswerService {
	return &SummarizeAnswerService{
		log:          baseLog.With("service", "SummarizeAnswerService"),
		embedder:     embedder,
		summarizer:   summarizer,
		repo:         repo,
		connectorSvc: connectorSvc,
		configSvc:    configSvc,
		appEnv:       appEnv,
	}
}

// Handle grounds an answer in the deployment's documents. When
// optionIDs is non-empty those items are the grounding set; otherwise
// the nearest chunks to the query are used.
func (s *SummarizeAnswerService) Handle(ctx context.Context, query string, orgID int, deploymentID string, optionIDs []int64) (SummarizeResult, error) {
	widget, err := s.configSvc.GetSearchWidgetByDeploymentID(ctx, orgID, deploymentID)
	if err != nil {
		return SummarizeResult{}, err
	}
	if widget == nil {
		return SummarizeResult{}, apierr.NotFound("widget %s not found", deploymentID)
	}

	connectors, err := s.connectorSvc.GetAllConnectors(ctx, orgID)
	if err != nil {
		return SummarizeResult{}, err
	}
	filters, err := searchfilters.CompileWidgetFilters(widget, connectors, searchfilters.Filters{})
	if err != nil {
		return SummarizeResult{}, err
	}

	if s.appEnv == "local" {
		options, err := s.searchBest(ctx, query, orgID, filters)
		if err != nil {
			return SummarizeResult{}, err
		}
		return s.render(localAnswer, options), nil
	}

	var options []domain.Item
	if len(optionIDs) > 0 {
		options, err = s.repo.FindItemsByIDs(ctx, optionIDs, orgID)
	} else {
		options, err = s.searchBest(ctx, query, orgID, filters)
	}
	if err != nil {
		return SummarizeResult{}, err
	}

	if len(options) == 0 {
		s.log.Error("No context found to answer question", "org_id", orgID, "deployment_id", deploymentID)
		return SummarizeResult{Answer: noContextAnswer, Options: []OptionView{}}, nil
	}

	snippets := make([]string, len(options))
	for i, opt := range options {
		snippets[i] = opt.Snippet
	}
	answer, err := s.summarizer.Summarize(ctx, query, snippets)
	if err != nil {
		return SummarizeResult{}, err
	}
	return s.render(answer, options), nil
}

func (s *SummarizeAnswerService) searchBest(ctx context.Context, query string, orgID int, filters searchfilters.Filters) ([]domain.Item, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return s.repo.SearchBest(ctx, vectors[0], orgID, filters, defaultBestN)
}

func (s *SummarizeAnswerService) render(answer string, options []domain.Item) SummarizeResult {
	views := make([]OptionView, 0, len(options))
	for _, opt := range options {
		view, err := renderOption(opt)
		if err != nil {
			s.log.Error("Failed to render summarize option", "item_id", opt.ID, "error", err)
			continue
		}
		views = append(views, view)
	}
	return SummarizeResult{Answer: answer, Options: views}
}
