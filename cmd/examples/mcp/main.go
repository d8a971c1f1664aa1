// Package main serves the segmenter as an MCP tool over stdio.
package main

import (
	"context"
	"log"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stepstream/stepstream/pkg/stepstream"
)

// SegmentArgs defines arguments for the segment_text tool.
type SegmentArgs struct {
	Text string            `json:"text" jsonschema:"description=Model output to segment,required"`
	Tags map[string]string `json:"tags,omitempty" jsonschema:"description=Tag name to step label mapping"`
}

// SegmentResult carries the ordered segment messages.
type SegmentResult struct {
	Messages []stepstream.Message `json:"messages"`
}

func main() {
	ctx := context.Background()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "stepstream",
		Version: "v0.1.0",
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "segment_text",
		Description: "Split model output into labeled steps by " +
			"XML-style tags",
	}, segmentHandler)

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// segmentHandler implements the segment_text tool.
func segmentHandler(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	args SegmentArgs,
) (*mcpsdk.CallToolResult, SegmentResult, error) {
	parser, err := stepstream.NewParser(stepstream.Config{Tags: args.Tags})
	if err != nil {
		return nil, SegmentResult{}, err
	}

	msgs := parser.ParseChunk(args.Text)
	if final := parser.Finalize(); final != nil {
		msgs = append(msgs, *final)
	}

	return nil, SegmentResult{Messages: msgs}, nil
}
