package proxy

import (
	"context"

	"go.uber.org/zap"

	"chargemind/client"
	"chargemind/evidence"
)

type ClientLookup interface {
	GetByShopDomain(ctx context.Context, shop string) (client.Client, error)
}

type FieldSource interface {
	Fields(ctx context.Context, clientID string, problem evidence.ProblemType) ([]evidence.Field, error)
}

// Service assembles PageData for a shop.
type Service struct {
	clients  ClientLookup
	fields   FieldSource
	apiBase  string
	assetURL string
	log      *zap.Logger
}

func NewService(clients ClientLookup, fields FieldSource, apiBase, assetURL string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{clients: clients, fields: fields, apiBase: apiBase, assetURL: assetURL, log: log}
}

// Page loads the tenant and its evidence questions. A problem type whose
// fields cannot be loaded is left out rather than failing the page.
func (s *Service) Page(ctx context.Context, shop string) (PageData, error) {
	c, err := s.clients.GetByShopDomain(ctx, shop)
	if err != nil {
		return PageData{}, err
	}

	data := PageData{
		Shop:     c.ShopDomain,
		ClientID: c.ID,
		APIBase:  s.apiBase,
		AssetURL: s.assetURL,
		Branding: c.Branding,
		Policies: c.Policies,
	}
	for _, p := range evidence.ProblemTypes {
		fields, err := s.fields.Fields(ctx, c.ID, p)
		if err != nil {
			s.log.Warn("evidence fields skipped",
				zap.String("client_id", c.ID),
				zap.String("problem_type", string(p)),
				zap.Error(err))
			continue
		}
		data.FieldSets = append(data.FieldSets, FieldSet{ProblemType: p, Fields: RenderFields(fields)})
	}
	return data, nil
}
