package configuration

type Configuration struct {
	Name       string `usage:"repository name"`
	Url        string `usage:"connection url: file://<dir> or sqlite://<path>"`
	ShowConfig bool   `usage:"print config"`
	ShowBanner bool   `usage:"show big banner"`
	Version    bool   `usage:"show version and exit"`
}

func Default() Configuration {
	return Configuration{
		Name:       "polydb",
		Url:        "file://data",
		ShowBanner: true,
	}
}
