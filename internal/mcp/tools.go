package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/advdiff/internal/ops"
)

func compareToolDef() mcp.Tool {
	return mcp.NewTool("diff_compare",
		mcp.WithDescription("Compare an adversarial SQuAD variant against the original SQuAD validation split. "+
			"Returns counts of modified contexts, modified questions, identical records and suffixed ids, "+
			"plus the first N changed records with their inserted or replaced text marked as changed segments."),
		mcp.WithString("dataset",
			mcp.Description("Adversarial variant (default AddSent)"),
			mcp.Enum(ops.Variants...),
		),
		mcp.WithNumber("samples",
			mcp.Description("Number of changed records to return (default 5, 0 for counts only)"),
			mcp.Min(0),
		),
		mcp.WithNumber("snippet_len",
			mcp.Description("Trailing context characters kept per sample (default from config, 400)"),
			mcp.Min(0),
		),
		mcp.WithString("original_file",
			mcp.Description("Local JSON/JSONL/SQuAD file to use instead of the hub for the original collection"),
		),
		mcp.WithString("adversarial_file",
			mcp.Description("Local JSON/JSONL/SQuAD file to use instead of the hub for the adversarial collection"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Re-fetch collections from the hub even when cached"),
		),
	)
}

func cacheListToolDef() mcp.Tool {
	return mcp.NewTool("cache_list",
		mcp.WithDescription("List dataset collections stored in the local cache, newest first."),
	)
}

func cachePurgeToolDef() mcp.Tool {
	return mcp.NewTool("cache_purge",
		mcp.WithDescription("Delete cached dataset collections. With no filters every cached collection is removed."),
		mcp.WithString("dataset",
			mcp.Description("Only purge collections of this dataset (e.g. stanfordnlp/squad_adversarial)"),
		),
		mcp.WithNumber("older_than_days",
			mcp.Description("Only purge collections fetched more than N days ago"),
			mcp.Min(0),
		),
	)
}
