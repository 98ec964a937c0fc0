// Package tools assembles the default tool registry. Tools whose
// upstream credentials are missing register as unavailable rather than
// failing startup: the planner simply never sees them.
package tools

import (
	"log"

	"github.com/mohammad-safakhou/dualmind/config"
	"github.com/mohammad-safakhou/dualmind/internal/llm"
	"github.com/mohammad-safakhou/dualmind/internal/registry"
	"github.com/mohammad-safakhou/dualmind/tools/arxiv"
	"github.com/mohammad-safakhou/dualmind/tools/news"
	"github.com/mohammad-safakhou/dualmind/tools/report"
	"github.com/mohammad-safakhou/dualmind/tools/synth"
	"github.com/mohammad-safakhou/dualmind/tools/webfetch"
	"github.com/mohammad-safakhou/dualmind/tools/websearch"
	"github.com/mohammad-safakhou/dualmind/tools/wikipedia"
)

// BuildRegistry constructs the standard registry from config. provider
// may be nil; qa_engine then synthesizes deterministically.
func BuildRegistry(cfg config.ToolsConfig, provider llm.Provider) (*registry.Registry, error) {
	logger := log.New(log.Writer(), "[TOOLS] ", log.LstdFlags)

	entries := []registry.Entry{
		{
			Descriptor: registry.Descriptor{
				Name:     registry.SynthesisTool,
				Purpose:  "synthesize gathered material into the final answer",
				Critical: true,
			},
			Impl: synth.New(provider),
		},
		{
			Descriptor: registry.Descriptor{
				Name:     "wikipedia_search",
				Purpose:  "look up encyclopedic background for a topic",
				Critical: true,
			},
			Impl: wikipedia.New(cfg.Wikipedia),
		},
		{
			Descriptor: registry.Descriptor{
				Name:     "arxiv_summarizer",
				Purpose:  "find and summarize relevant research papers",
				Fallback: "wikipedia_search",
			},
			Impl: arxiv.New(cfg.Arxiv),
		},
		{
			Descriptor: registry.Descriptor{
				Name:    "document_writer",
				Purpose: "write gathered material into a markdown report",
			},
			Impl: report.New(cfg.Report),
		},
		{
			Descriptor: registry.Descriptor{
				Name:    "page_reader",
				Purpose: "fetch and extract the readable content of a web page",
			},
			Impl: webfetch.New(cfg.WebFetch),
		},
	}

	if t, err := news.New(cfg.News); err != nil {
		logger.Printf("news_fetcher unavailable: %v", err)
	} else {
		entries = append(entries, registry.Entry{
			Descriptor: registry.Descriptor{
				Name:     "news_fetcher",
				Purpose:  "fetch recent news coverage for a topic",
				Fallback: "wikipedia_search",
			},
			Impl: t,
		})
	}

	if t, err := websearch.New(cfg.WebSearch); err != nil {
		logger.Printf("web_search unavailable: %v", err)
	} else {
		entries = append(entries, registry.Entry{
			Descriptor: registry.Descriptor{
				Name:     "web_search",
				Purpose:  "search the web for current sources",
				Fallback: "wikipedia_search",
			},
			Impl: t,
		})
	}

	return registry.New(entries...)
}
