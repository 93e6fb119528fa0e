package llm

type Option func(*Options)

// Options configures a provider. Unset models fall back to provider defaults.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	ProfileModel string
	ImageModel   string
}

func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

func WithProfileModel(model string) Option {
	return func(o *Options) { o.ProfileModel = model }
}

func WithImageModel(model string) Option {
	return func(o *Options) { o.ImageModel = model }
}

func NewOptions(opts ...Option) Options {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if options.ProfileModel == "" {
		options.ProfileModel = options.Model
	}
	return options
}
