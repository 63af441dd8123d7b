package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"semaforo/internal/documents/models"
	docservice "semaforo/internal/documents/service"
	"semaforo/internal/semaforo"
	"semaforo/internal/semaforo/service"
	id "semaforo/pkg/domain"
)

const usage = `usage: semaforoctl <command> [args]

commands:
  org-create <name> <type>   register an organization (starts rojo)
  doc-create <org-id> <category> [-date D] [-title T]
                             file a document and refresh the organization
  doc-update <doc-id> [-date D] [-title T]
                             change a document; -date "" clears the date
  doc-delete <doc-id>        soft-delete a document and refresh
  compute <org-id>           evaluate documents without touching the cache
  status <org-id>            print the cached semaforo and detalles
  refresh <org-id>           recompute and persist one organization
  refresh-all                recompute every active organization
  stats                      fold cached semaforos into counts
  import <file.json>         bulk import documents (JSON array of rows)
`

var errUsage = errors.New("invalid arguments")

type organizationCreator interface {
	Create(ctx context.Context, org *semaforo.Organization) error
}

type commands struct {
	semaforo  *service.Service
	documents *docservice.Service
	orgs      organizationCreator
	out       io.Writer
}

func (c *commands) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.usage()
	}
	name, rest := args[0], args[1:]
	switch name {
	case "org-create":
		if len(rest) != 2 {
			return c.usage()
		}
		return c.orgCreate(ctx, rest[0], rest[1])
	case "doc-create":
		if len(rest) < 2 {
			return c.usage()
		}
		return c.docCreate(ctx, rest[0], rest[1], rest[2:])
	case "doc-update":
		if len(rest) < 1 {
			return c.usage()
		}
		return c.docUpdate(ctx, rest[0], rest[1:])
	case "doc-delete":
		if len(rest) != 1 {
			return c.usage()
		}
		if err := c.documents.Delete(ctx, rest[0]); err != nil {
			return err
		}
		return c.print(map[string]string{"deleted": rest[0]})
	case "compute", "status", "refresh":
		if len(rest) != 1 {
			return c.usage()
		}
		orgID, err := id.ParseOrganizationID(rest[0])
		if err != nil {
			return err
		}
		switch name {
		case "compute":
			return c.print(c.semaforo.ComputeStatus(ctx, orgID))
		case "refresh":
			c.semaforo.RefreshCache(ctx, orgID)
		}
		return c.status(ctx, orgID)
	case "refresh-all":
		report, err := c.semaforo.RefreshAll(ctx)
		if err != nil {
			return err
		}
		return c.print(report)
	case "stats":
		stats, err := c.semaforo.ReduceStatistics(ctx)
		if err != nil {
			return err
		}
		return c.print(stats)
	case "import":
		if len(rest) != 1 {
			return c.usage()
		}
		return c.importFile(ctx, rest[0])
	default:
		return c.usage()
	}
}

func (c *commands) orgCreate(ctx context.Context, name, orgType string) error {
	org := semaforo.Organization{
		ID:     id.NewOrganizationID(),
		Name:   strings.TrimSpace(name),
		Type:   semaforo.OrgType(strings.TrimSpace(orgType)),
		Active: true,
	}
	if err := c.orgs.Create(ctx, &org); err != nil {
		return err
	}
	return c.print(org)
}

func (c *commands) docCreate(ctx context.Context, orgID, category string, args []string) error {
	fs := documentFlags("doc-create")
	date := fs.String("date", "", "issue date (YYYY-MM-DD, DD/MM/YYYY)")
	title := fs.String("title", "", "document title")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	doc, err := c.documents.Create(ctx, models.CreateRequest{
		OrganizationID: orgID,
		Category:       category,
		Title:          *title,
		IssueDate:      *date,
	})
	if err != nil {
		return err
	}
	return c.print(doc)
}

// docUpdate only sends the fields given on the command line.
func (c *commands) docUpdate(ctx context.Context, docID string, args []string) error {
	fs := documentFlags("doc-update")
	date := fs.String("date", "", "new issue date; empty clears it")
	title := fs.String("title", "", "new title")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	var req models.UpdateRequest
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "date":
			req.IssueDate = date
		case "title":
			req.Title = title
		}
	})
	if req.IssueDate == nil && req.Title == nil {
		return c.usage()
	}
	doc, err := c.documents.Update(ctx, docID, req)
	if err != nil {
		return err
	}
	return c.print(doc)
}

func documentFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (c *commands) status(ctx context.Context, orgID id.OrganizationID) error {
	cached, err := c.semaforo.ReadCachedStatus(ctx, orgID)
	if err != nil {
		return err
	}
	return c.print(cached)
}

func (c *commands) importFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var rows []models.ImportRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}
	report, err := c.documents.Import(ctx, rows)
	if err != nil {
		return err
	}
	return c.print(report)
}

func (c *commands) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *commands) usage() error {
	fmt.Fprint(c.out, usage)
	return errUsage
}
