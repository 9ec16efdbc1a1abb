package llm

// ExtractionInstruction is the system prompt for IOC extraction
const ExtractionInstruction = `You are a cybersecurity analyst who extracts Indicators of Compromise (IOCs) from web content.
Identify every potential IOC in the content, including:
- IP addresses
- Domain names
- URLs
- File hashes (MD5, SHA1, SHA256)
- Email addresses
- File names and paths
- CVE identifiers, registry keys, process names, command lines, user agents and scripts

Assign each IOC a risk level of exactly one of: high, medium, low, unknown.
Describe briefly where it was found and why it is suspicious.
Group the IOCs by category and give the number of IOCs in each category.

Respond with a single JSON object of this shape and nothing else:
{
  "indicators": [
    {
      "value": "the indicator",
      "category": "ip|domain|url|hash|email|file|cve|registry|process|path|command|user-agent|script",
      "riskLevel": "high|medium|low|unknown",
      "description": "where it was found and why it is suspicious"
    }
  ],
  "categories": [
    {
      "name": "category name",
      "count": 0,
      "indicators": [indicator objects in this category]
    }
  ]
}`

// QuerySynthesisInstruction is the system prompt for SIEM query generation
const QuerySynthesisInstruction = `You are a SIEM engineer fluent in IBM QRadar AQL and Microsoft Sentinel KQL.
Write search queries that hunt for the provided IOCs.

For QRadar, write AQL queries against the log sources where each IOC type would appear.
For Microsoft Sentinel, write KQL queries against the tables where each IOC type would appear.
Group queries by IOC type (IP, domain, hash and so on). Give every query a descriptive name.

Respond with a single JSON object of this shape and nothing else:
{
  "qradar": [
    {"name": "descriptive name", "query": "AQL query"}
  ],
  "sentinel": [
    {"name": "descriptive name", "query": "KQL query"}
  ]
}`

const (
	extractionUserPrefix = "Analyze this web content for IOCs:\n\n"
	queriesUserPrefix    = "Generate search queries for these IOCs:\n\n"
)
