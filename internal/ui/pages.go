package ui

import (
	"context"
	"fmt"
	"net/url"
	"time"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"queryd/internal/domain"
	"queryd/internal/results"
)

type navItem struct {
	Label string
	Href  string
	Key   string
}

var navItems = []navItem{
	{Label: "Editor", Href: "/ui", Key: "editor"},
	{Label: "Jobs", Href: "/ui/jobs", Key: "jobs"},
	{Label: "Results", Href: "/ui/results", Key: "results"},
	{Label: "Saved", Href: "/ui/saved", Key: "saved"},
	{Label: "History", Href: "/ui/history", Key: "history"},
}

func appPage(title, active string, principal domain.ContextPrincipal, body ...Node) Node {
	nav := make([]Node, 0, len(navItems))
	for _, item := range navItems {
		className := "nav-link"
		if item.Key == active {
			className += " active"
		}
		nav = append(nav, A(Href(item.Href), Class(className), Text(item.Label)))
	}

	who := principal.Name
	if who == "" {
		who = "unknown"
	}

	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | queryd")),
			Link(Rel("icon"), Href("data:,")),
			Link(Rel("stylesheet"), Href("/ui/static/app.css")),
		),
		Body(
			Header(Class("topbar"),
				Strong(Text("queryd")),
				Nav(Class("nav"), Group(nav)),
				Span(Class("who"), Text(who)),
				Form(Method("post"), Action("/ui/logout"), Class("logout"),
					Button(Type("submit"), Class("btn btn-quiet"), Text("Log out")),
				),
			),
			Main(Class("content"), Group(body)),
		),
	)
}

func flash(messages, errs []string) Node {
	if len(messages) == 0 && len(errs) == 0 {
		return nil
	}
	nodes := make([]Node, 0, len(messages)+len(errs))
	for _, m := range errs {
		nodes = append(nodes, Div(Class("flash flash-error"), Text(m)))
	}
	for _, m := range messages {
		nodes = append(nodes, Div(Class("flash flash-info"), Text(m)))
	}
	return Div(Class("flashes"), Group(nodes))
}

func loginPage(errMsg string) Node {
	var errNode Node
	if errMsg != "" {
		errNode = Div(Class("flash flash-error"), Text(errMsg))
	}
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			TitleEl(Text("Log in | queryd")),
			Link(Rel("stylesheet"), Href("/ui/static/app.css")),
		),
		Body(
			Main(Class("login-card"),
				H1(Text("queryd")),
				P(Text("Paste a bearer token or API key to use the console.")),
				errNode,
				Form(Method("post"), Action("/ui/login"),
					Label(For("kind"), Text("Credential type")),
					Select(ID("kind"), Name("kind"),
						Option(Value("bearer"), Text("Bearer token")),
						Option(Value("api_key"), Text("API key")),
					),
					Label(For("token"), Text("Credential")),
					Input(ID("token"), Name("token"), Type("password"), AutoComplete("off")),
					Button(Type("submit"), Class("btn"), Text("Log in")),
				),
			),
		),
	)
}

func errorPage(title, message string) Node {
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			TitleEl(Text(title+" | queryd")),
			Link(Rel("stylesheet"), Href("/ui/static/app.css")),
		),
		Body(Main(Class("content"),
			H1(Text(title)),
			P(Text(message)),
			A(Href("/ui"), Text("Back to editor")),
		)),
	)
}

const exampleDef = `{
  "select": ["id", "item"],
  "from": "orders",
  "where": [{"column": "id", "op": "gt", "value": "0"}],
  "sort": [{"column": "id"}]
}`

func editorPage(ctx context.Context, principal domain.ContextPrincipal, defText string, messages, errs []string) Node {
	placeholder := exampleDef
	return appPage("Editor", "editor", principal,
		H1(Text("Query Editor")),
		flash(messages, errs),
		Form(Method("post"), Class("editor"),
			csrfField(ctx),
			Textarea(Name("definition"), Rows("14"), Placeholder(placeholder), Text(defText)),
			Div(Class("editor-actions"),
				Label(Class("check"),
					Input(Type("checkbox"), Name("save")),
					Text(" save to profile on success"),
				),
				Button(Type("submit"), FormAction("/ui/query/run"), Class("btn"), Text("Run")),
				Button(Type("submit"), FormAction("/ui/query/start"), Class("btn btn-quiet"), Text("Run in background")),
			),
		),
	)
}

type jobRow struct {
	ID         string
	Status     string
	Cancelable bool
}

func jobsPage(ctx context.Context, principal domain.ContextPrincipal, jobs []jobRow, messages, errs []string) Node {
	var table Node
	if len(jobs) == 0 {
		table = P(Class("empty"), Text("No background jobs. Completed jobs leave the list shortly after finishing."))
	} else {
		rows := make([]Node, 0, len(jobs))
		for _, j := range jobs {
			var action Node
			if j.Cancelable {
				action = Form(Method("post"), Action("/ui/jobs/"+j.ID+"/cancel"),
					csrfField(ctx),
					Button(Type("submit"), Class("btn btn-danger"), Text("Cancel")),
				)
			}
			rows = append(rows, Tr(
				Td(Code(Text(j.ID))),
				Td(Span(Class("status status-"+j.Status), Text(j.Status))),
				Td(action),
			))
		}
		table = Table(
			THead(Tr(Th(Text("Job")), Th(Text("Status")), Th(Text("")))),
			TBody(Group(rows)),
		)
	}

	return appPage("Jobs", "jobs", principal,
		H1(Text("Background Jobs")),
		flash(messages, errs),
		P(Class("hint"), Text("This page refreshes on demand; reload to poll. Polling keeps jobs alive.")),
		table,
	)
}

func noResultsPage(ctx context.Context, principal domain.ContextPrincipal) Node {
	_ = ctx
	return appPage("Results", "results", principal,
		H1(Text("Results")),
		P(Class("empty"), Text("No results yet. Run a query from the editor first.")),
	)
}

func resultsPage(ctx context.Context, principal domain.ContextPrincipal, page results.Page, messages, errs []string) Node {
	_ = ctx
	head := make([]Node, 0, len(page.Columns))
	for _, c := range page.Columns {
		head = append(head, Th(Text(c)))
	}
	body := make([]Node, 0, len(page.Rows))
	for _, row := range page.Rows {
		cells := make([]Node, 0, len(row))
		for _, cell := range row {
			cells = append(cells, Td(Text(cellText(cell))))
		}
		body = append(body, Tr(Group(cells)))
	}

	var pager []Node
	if page.Offset > 0 {
		prev := page.Offset - resultsPageSize
		if prev < 0 {
			prev = 0
		}
		pager = append(pager, A(Class("btn btn-quiet"), Href(fmt.Sprintf("/ui/results?offset=%d", prev)), Text("Previous")))
	}
	if page.HasMore {
		pager = append(pager, A(Class("btn btn-quiet"), Href(fmt.Sprintf("/ui/results?offset=%d", page.Offset+len(page.Rows))), Text("Next")))
	}

	return appPage("Results", "results", principal,
		H1(Text("Results")),
		flash(messages, errs),
		P(Class("hint"), Text(fmt.Sprintf("Rows %d–%d of %d.", page.Offset+1, page.Offset+len(page.Rows), page.Total))),
		A(Class("btn"), Href("/ui/results.csv"), Text("Download CSV")),
		Table(THead(Tr(Group(head))), TBody(Group(body))),
		Div(Class("pager"), Group(pager)),
	)
}

func savedPage(ctx context.Context, principal domain.ContextPrincipal, saved []domain.SavedQuery, messages, errs []string) Node {
	var table Node
	if len(saved) == 0 {
		table = P(Class("empty"), Text("No saved queries yet."))
	} else {
		rows := make([]Node, 0, len(saved))
		for i := range saved {
			sq := &saved[i]
			rows = append(rows, Tr(
				Td(Text(sq.Name)),
				Td(Text(sq.UpdatedAt.Format(time.RFC3339))),
				Td(Class("row-actions"),
					Form(Method("post"), Action("/ui/saved/"+url.PathEscape(sq.Name)+"/load"),
						csrfField(ctx),
						Button(Type("submit"), Class("btn btn-quiet"), Text("Load")),
					),
					Form(Method("post"), Action("/ui/saved/"+url.PathEscape(sq.Name)+"/delete"),
						csrfField(ctx),
						Button(Type("submit"), Class("btn btn-danger"), Text("Delete")),
					),
				),
			))
		}
		table = Table(
			THead(Tr(Th(Text("Name")), Th(Text("Updated")), Th(Text("")))),
			TBody(Group(rows)),
		)
	}

	return appPage("Saved", "saved", principal,
		H1(Text("Saved Queries")),
		flash(messages, errs),
		Form(Method("post"), Action("/ui/saved"), Class("inline-form"),
			csrfField(ctx),
			Input(Name("name"), Placeholder("name for the current query")),
			Button(Type("submit"), Class("btn"), Text("Save current query")),
		),
		table,
	)
}

func historyPage(ctx context.Context, principal domain.ContextPrincipal, entries []domain.QueryHistoryEntry, total int64) Node {
	_ = ctx
	var table Node
	if len(entries) == 0 {
		table = P(Class("empty"), Text("No runs recorded yet."))
	} else {
		rows := make([]Node, 0, len(entries))
		for i := range entries {
			e := &entries[i]
			detail := ""
			if e.RowCount != nil {
				detail = fmt.Sprintf("%d rows", *e.RowCount)
			} else if e.ErrorMessage != nil {
				detail = *e.ErrorMessage
			}
			rows = append(rows, Tr(
				Td(Text(e.Title)),
				Td(Span(Class("status status-"+string(e.Status)), Text(string(e.Status)))),
				Td(Text(e.StartedAt.Format(time.RFC3339))),
				Td(Text(detail)),
			))
		}
		table = Table(
			THead(Tr(Th(Text("Query")), Th(Text("Status")), Th(Text("Started")), Th(Text("Detail")))),
			TBody(Group(rows)),
		)
	}

	return appPage("History", "history", principal,
		H1(Text("Run History")),
		P(Class("hint"), Text(fmt.Sprintf("%d runs recorded.", total))),
		table,
	)
}

func cellText(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
