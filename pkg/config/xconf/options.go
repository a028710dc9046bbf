package xconf

// Options 加载配置。
type Options struct {
	// Delim 嵌套键分隔符，默认 "."
	Delim string

	// Tag 反序列化使用的结构体标签，默认 "koanf"
	Tag string
}

// Option 配置选项。
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Delim: ".",
		Tag:   "koanf",
	}
}

// WithDelim 设置嵌套键分隔符。
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithTag 设置反序列化的结构体标签。
func WithTag(tag string) Option {
	return func(o *Options) {
		if tag != "" {
			o.Tag = tag
		}
	}
}
