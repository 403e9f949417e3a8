// Package fine is the entry point of the fine SDK. It derives the per service base URLs and
// builds the table and assistant clients over one shared request function.
//
//	c, err := fine.New(fine.Options{BaseURL: "https://app.example.com"}, httpClient.Do)
//	rows, err := c.Table("tasks").Select().Eq("done", false).Execute(ctx)
package fine

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fine-dev/fine-go/internal/common/apperrors"
	"github.com/fine-dev/fine-go/pkg/ai"
	"github.com/fine-dev/fine-go/pkg/rest"
	"github.com/fine-dev/fine-go/pkg/transport"
)

var ErrInvalidOptions = apperrors.New("fine: invalid options")

// Options locates the services. Either BaseURL is set, in which case the service URLs default
// to <base>/db, <base>/auth and <base>/ai, or all three service URLs are given explicitly.
// An explicit service URL always overrides the derived one.
type Options struct {
	BaseURL string `validate:"required_without_all=RestURL AuthURL AIURL,omitempty,url"`
	RestURL string `validate:"required_without=BaseURL,omitempty,url"`
	AuthURL string `validate:"required_without=BaseURL,omitempty,url"`
	AIURL   string `validate:"required_without=BaseURL,omitempty,url"`

	Headers transport.Headers `validate:"-"`
	Logger  *zerolog.Logger   `validate:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the options locate every service.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return ErrInvalidOptions.MsgErr(describe(err), err)
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "fine: " + err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return "fine: invalid options: " + strings.Join(fields, ", ")
}

// Resolved returns a copy with every service URL filled in.
func (o Options) Resolved() Options {
	base := strings.TrimRight(o.BaseURL, "/")
	if o.RestURL == "" {
		o.RestURL = base + "/db"
	}
	if o.AuthURL == "" {
		o.AuthURL = base + "/auth"
	}
	if o.AIURL == "" {
		o.AIURL = base + "/ai"
	}
	return o
}

// Client bundles the service clients.
type Client struct {
	DB      *rest.Client
	AI      *ai.Client
	AuthURL string
}

// New validates opts and creates the service clients. do performs every request; it is
// required.
func New(opts Options, do transport.RequestFunc) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Resolved()

	dbTransport, err := transport.New(opts.RestURL, do)
	if err != nil {
		return nil, err
	}
	aiTransport, err := transport.New(opts.AIURL, do)
	if err != nil {
		return nil, err
	}

	aiOpts := []ai.Option{ai.WithHeaders(opts.Headers)}
	if opts.Logger != nil {
		aiOpts = append(aiOpts, ai.WithLogger(*opts.Logger))
	}

	return &Client{
		DB:      rest.NewClient(dbTransport, rest.WithHeaders(opts.Headers)),
		AI:      ai.NewClient(aiTransport, aiOpts...),
		AuthURL: strings.TrimRight(opts.AuthURL, "/"),
	}, nil
}

// Table is shorthand for c.DB.Table(name).
func (c *Client) Table(name string) *rest.QueryBuilder {
	return c.DB.Table(name)
}
