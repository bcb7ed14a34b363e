package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/boovines/Granted/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage uploaded source documents",
	Long:  `Ingest, list, search or delete the source documents of a workspace.`,
}

var documentIngestCmd = &cobra.Command{
	Use:   "ingest [workspace-id] [file]",
	Short: "Parse and index a document",
	Long: `Upload a PDF or DOCX to the document parser, then clean, chunk and embed
the result. With --parsed, the parser is skipped and the given JSON
parser output is indexed instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runDocumentIngest,
}

var documentListCmd = &cobra.Command{
	Use:   "list [workspace-id]",
	Short: "List documents of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "List or search a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var (
	documentParsed string
	documentQuery  string
	documentK      int
)

func init() {
	documentIngestCmd.Flags().StringVar(&documentParsed, "parsed", "", "JSON file with pre-parsed elements")
	documentChunksCmd.Flags().StringVarP(&documentQuery, "query", "q", "", "Rank chunks against this query")
	documentChunksCmd.Flags().IntVarP(&documentK, "k", "k", 20, "Maximum number of chunks")

	documentCmd.AddCommand(documentIngestCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	ctx := commandContext(cmd)
	workspaceID, path := args[0], args[1]
	filename := filepath.Base(path)

	var (
		doc *domain.Document
		err error
	)
	if documentParsed != "" {
		parsed, perr := loadParsedDocument(documentParsed)
		if perr != nil {
			return perr
		}
		doc, err = ingestService.IngestParsed(ctx, workspaceID, filename, parsed)
	} else {
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return fmt.Errorf("failed to read %s: %w", path, rerr)
		}
		cmd.Printf("Parsing %s...\n", filename)
		doc, err = ingestService.Ingest(ctx, workspaceID, filename, data)
	}
	if err != nil {
		if doc != nil {
			cmd.Printf("Document %s marked %s.\n", doc.ID, domain.DocumentFailed)
		}
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	cmd.Printf("Ingested %s as %s\n", filename, doc.ID)
	cmd.Printf("  Status: %s\n", doc.Status)
	cmd.Printf("  Chunks: %d\n", doc.Metadata.ChunkCount)
	if doc.Metadata.PageCount > 0 {
		cmd.Printf("  Pages:  %d\n", doc.Metadata.PageCount)
	}
	return nil
}

func loadParsedDocument(path string) (*domain.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parsed document: %w", err)
	}
	var parsed domain.ParsedDocument
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode parsed document: %w", err)
	}
	return &parsed, nil
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	workspaceID := args[0]
	docs, err := ingestService.ListDocuments(commandContext(cmd), workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for workspace: %s\n", workspaceID)
		return nil
	}

	cmd.Printf("Documents for workspace %s:\n\n", workspaceID)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:   %s\n", docs[i].Filename)
		cmd.Printf("    Status: %s\n", docs[i].Status)
		if docs[i].Metadata.Title != "" {
			cmd.Printf("    Title:  %s\n", docs[i].Metadata.Title)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	doc, err := ingestService.GetDocument(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Workspace: %s\n", doc.WorkspaceID)
	cmd.Printf("  File:      %s\n", doc.Filename)
	cmd.Printf("  Uploaded:  %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Status:    %s\n", doc.Status)
	if doc.Error != "" {
		cmd.Printf("  Error:     %s\n", doc.Error)
	}
	if doc.Metadata.Title != "" {
		cmd.Printf("  Title:     %s\n", doc.Metadata.Title)
	}
	cmd.Printf("  Pages:     %d\n", doc.Metadata.PageCount)
	cmd.Printf("  Chunks:    %d\n", doc.Metadata.ChunkCount)

	if len(doc.Metadata.ElementTypes) > 0 {
		types := make([]string, 0, len(doc.Metadata.ElementTypes))
		for t := range doc.Metadata.ElementTypes {
			types = append(types, t)
		}
		sort.Strings(types)

		cmd.Println("\n  Elements:")
		for _, t := range types {
			cmd.Printf("    %s: %d\n", t, doc.Metadata.ElementTypes[t])
		}
	}
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	if contextService == nil {
		return errNotConfigured("context")
	}

	ctx := commandContext(cmd)
	doc, err := ingestService.GetDocument(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	key := domain.DocumentKey(doc.WorkspaceID, doc.ID)
	result, err := contextService.GetContext(ctx, domain.StoreSourceDocs, key, documentQuery, documentK, false)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	printRetrieval(cmd, result)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	if err := ingestService.DeleteDocument(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}
