package catalog

// Category names of the bundled catalog.
const (
	HardcodedString     = "hardcoded-string"
	EnvironmentVariable = "environment-variable"
	DatabaseConnection  = "database-connection"
	APIEndpoint         = "api-endpoint"
	ConfigurationValue  = "configuration-value"
	FilePath            = "file-path"
	VersionString       = "version-string"
	SecurityToken       = "security-token"
	CloudResource       = "cloud-resource"
)

// DefaultCategories returns the bundled category table. The slice is freshly allocated
// on every call so callers may extend it before compiling.
//
// Negated character classes exclude newlines so that rules stay within one line. Key
// rules are not anchored, so prefixed keys such as DB_HOST or POSTGRES_PASSWORD match.
func DefaultCategories() []Category {
	return []Category{
		{
			Name:       HardcodedString,
			BaseWeight: 60,
			Patterns: []string{
				`"([^"\n]*(?:config|setting|url|host|port|password|key|secret)[^"\n]*)"`,
				`'([^'\n]*(?:config|setting|url|host|port|password|key|secret)[^'\n]*)'`,
				`"([A-Z][A-Z_]+)"`,
				`"(https?://[^"\n]+)"`,
				`"(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})"`,
				`"(\w+@\w+\.\w+)"`,
			},
		},
		{
			Name:       EnvironmentVariable,
			BaseWeight: 90,
			Patterns: []string{
				`os\.environ\.get\(["']([^"'\n]+)["']`,
				`os\.getenv\(["']([^"'\n]+)["']`,
				`ENV\[["']([^"'\n]+)["']\]`,
				`process\.env\.([A-Z_]+)`,
			},
		},
		{
			Name:       DatabaseConnection,
			BaseWeight: 95,
			Patterns: []string{
				`host["']?[ \t]*[=:][ \t]*["']([^"'\n]+)["']`,
				`port["']?[ \t]*[=:][ \t]*(\d+)`,
				`database["']?[ \t]*[=:][ \t]*["']([^"'\n]+)["']`,
				`user["']?[ \t]*[=:][ \t]*["']([^"'\n]+)["']`,
				`password["']?[ \t]*[=:][ \t]*["']([^"'\n]+)["']`,
			},
		},
		{
			Name:       APIEndpoint,
			BaseWeight: 85,
			Patterns: []string{
				`api[_/]?url["']?[ \t]*[=:][ \t]*["']([^"'\n]+)["']`,
				`endpoint["']?[ \t]*[=:][ \t]*["']([^"'\n]+)["']`,
				`base[_/]?url["']?[ \t]*[=:][ \t]*["']([^"'\n]+)["']`,
			},
		},
		{
			Name:       ConfigurationValue,
			BaseWeight: 80,
			Patterns: []string{
				`timeout["']?[ \t]*[=:][ \t]*(\d+)`,
				`max[_/]?connections["']?[ \t]*[=:][ \t]*(\d+)`,
				`retry[_/]?count["']?[ \t]*[=:][ \t]*(\d+)`,
				`buffer[_/]?size["']?[ \t]*[=:][ \t]*(\d+)`,
			},
		},
		{
			Name:       FilePath,
			BaseWeight: 75,
			Patterns: []string{
				`["']([^"'\n]*\.(?:log|txt|json|xml|csv|yml|yaml)[^"'\n]*)["']`,
				`["']([^"'\n]*(?:/tmp/|/var/|/opt/|C:\\)[^"'\n]*)["']`,
			},
		},
		{
			Name:       VersionString,
			BaseWeight: 90,
			Patterns: []string{
				`version["']?[ \t]*[=:][ \t]*["']([0-9]+\.[0-9]+\.[0-9]+[^"'\n]*)["']`,
				`["']v?(\d+\.\d+\.\d+(?:-[a-zA-Z0-9]+)?)["']`,
			},
		},
		{
			Name:       SecurityToken,
			BaseWeight: 98,
			Patterns: []string{
				`token["']?[ \t]*[=:][ \t]*["']([A-Za-z0-9+/=]{20,})["']`,
				`key["']?[ \t]*[=:][ \t]*["']([A-Za-z0-9+/=]{16,})["']`,
				`secret["']?[ \t]*[=:][ \t]*["']([A-Za-z0-9+/=]{20,})["']`,
			},
		},
		{
			Name:       CloudResource,
			BaseWeight: 85,
			Patterns: []string{
				`region["']?[ \t]*[=:][ \t]*["']([a-z0-9-]+)["']`,
				`zone["']?[ \t]*[=:][ \t]*["']([a-z0-9-]+)["']`,
				`instance[_/]?type["']?[ \t]*[=:][ \t]*["']([a-z0-9.-]+)["']`,
			},
		},
	}
}

// Default compiles the bundled catalog.
func Default() *Catalog {
	c, err := Compile(DefaultCategories())
	if err != nil {
		panic("bundled catalog does not compile: " + err.Error())
	}
	return c
}

// DefaultDirect returns the bundled keyword to placeholder table, in lookup order.
func DefaultDirect() []KeywordPlaceholder {
	return []KeywordPlaceholder{
		{Keyword: "host", Placeholder: "{{DATABASE_HOST}}"},
		{Keyword: "port", Placeholder: "{{DATABASE_PORT}}"},
		{Keyword: "database", Placeholder: "{{DATABASE_NAME}}"},
		{Keyword: "user", Placeholder: "{{DATABASE_USER}}"},
		{Keyword: "password", Placeholder: "{{DATABASE_PASSWORD}}"},
		{Keyword: "timeout", Placeholder: "{{CONNECTION_TIMEOUT}}"},
		{Keyword: "max_connections", Placeholder: "{{MAX_CONNECTIONS}}"},
		{Keyword: "retry_count", Placeholder: "{{RETRY_COUNT}}"},
		{Keyword: "api_url", Placeholder: "{{API_BASE_URL}}"},
		{Keyword: "endpoint", Placeholder: "{{API_ENDPOINT}}"},
		{Keyword: "token", Placeholder: "{{API_TOKEN}}"},
		{Keyword: "key", Placeholder: "{{API_KEY}}"},
		{Keyword: "secret", Placeholder: "{{API_SECRET}}"},
		{Keyword: "region", Placeholder: "{{CLOUD_REGION}}"},
		{Keyword: "zone", Placeholder: "{{AVAILABILITY_ZONE}}"},
		{Keyword: "instance_type", Placeholder: "{{INSTANCE_TYPE}}"},
		{Keyword: "version", Placeholder: "{{APPLICATION_VERSION}}"},
		{Keyword: "log_file", Placeholder: "{{LOG_FILE_PATH}}"},
		{Keyword: "config_file", Placeholder: "{{CONFIG_FILE_PATH}}"},
	}
}

// DefaultCascades returns the bundled category-specific keyword tables.
func DefaultCascades() map[string][]KeywordRule {
	return map[string][]KeywordRule{
		DatabaseConnection: {
			{Keywords: []string{"host"}, Placeholder: "{{DATABASE_HOST}}"},
			{Keywords: []string{"port"}, Placeholder: "{{DATABASE_PORT}}"},
			{Keywords: []string{"user"}, Placeholder: "{{DATABASE_USER}}"},
			{Keywords: []string{"password"}, Placeholder: "{{DATABASE_PASSWORD}}"},
			{Keywords: []string{"database"}, Placeholder: "{{DATABASE_NAME}}"},
			{Keywords: []string{"db"}, Placeholder: "{{DATABASE_NAME}}"},
		},
		APIEndpoint: {
			{Placeholder: "{{API_ENDPOINT}}"},
		},
		SecurityToken: {
			{Keywords: []string{"token"}, Placeholder: "{{API_TOKEN}}"},
			{Keywords: []string{"key"}, Placeholder: "{{API_KEY}}"},
			{Keywords: []string{"secret"}, Placeholder: "{{API_SECRET}}"},
		},
		ConfigurationValue: {
			{Keywords: []string{"timeout"}, Placeholder: "{{TIMEOUT_SECONDS}}"},
			{Keywords: []string{"max", "connection"}, Placeholder: "{{MAX_CONNECTIONS}}"},
			{Keywords: []string{"retry"}, Placeholder: "{{RETRY_COUNT}}"},
			{Keywords: []string{"buffer"}, Placeholder: "{{BUFFER_SIZE}}"},
		},
		CloudResource: {
			{Keywords: []string{"region"}, Placeholder: "{{CLOUD_REGION}}"},
			{Keywords: []string{"zone"}, Placeholder: "{{AVAILABILITY_ZONE}}"},
			{Keywords: []string{"instance"}, Placeholder: "{{INSTANCE_TYPE}}"},
		},
		FilePath: {
			{Keywords: []string{".log"}, Placeholder: "{{LOG_FILE_PATH}}"},
			{Keywords: []string{".config"}, Placeholder: "{{CONFIG_FILE_PATH}}"},
			{Keywords: []string{".conf"}, Placeholder: "{{CONFIG_FILE_PATH}}"},
			{Keywords: []string{"tmp"}, Placeholder: "{{TEMP_DIRECTORY}}"},
			{Keywords: []string{"temp"}, Placeholder: "{{TEMP_DIRECTORY}}"},
		},
		VersionString: {
			{Placeholder: "{{APPLICATION_VERSION}}"},
		},
	}
}

// DefaultVocabulary builds the bundled PlaceholderVocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultDirect(), DefaultCascades())
	if err != nil {
		panic("bundled vocabulary is invalid: " + err.Error())
	}
	return v
}
