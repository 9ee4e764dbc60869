package configuration

type LogConfiguration struct {
	Level    string
	Format   string
	Output   string
	FilePath string
}

func DefLogConfiguration() *LogConfiguration {
	return &LogConfiguration{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

type MetricsConfiguration struct {
	Enabled   bool
	Namespace string
}

func DefMetricsConfiguration() *MetricsConfiguration {
	return &MetricsConfiguration{
		Enabled:   true,
		Namespace: "dacore",
	}
}
