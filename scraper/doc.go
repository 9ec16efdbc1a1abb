// Package scraper turns a URL into plain page text.
//
// Retrieval has two tiers. The primary tier is the Firecrawl scrape API, which
// returns cleaned article text. When it fails for any reason the fallback tier
// fetches raw markup, either with a plain HTTP GET or a headless Chrome session,
// and StripHTML reduces it to whitespace-normalized text.
package scraper
