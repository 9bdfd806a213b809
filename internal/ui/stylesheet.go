package ui

import "net/http"

func serveStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write([]byte(appCSS))
}

const appCSS = `
:root {
  --bg: #f6f8fa;
  --fg: #1f2328;
  --muted: #656d76;
  --border: #d0d7de;
  --accent: #0969da;
  --danger: #cf222e;
  --ok: #1a7f37;
}
* { box-sizing: border-box; }
body {
  margin: 0;
  font: 15px/1.5 system-ui, -apple-system, "Segoe UI", sans-serif;
  background: var(--bg);
  color: var(--fg);
}
.topbar {
  display: flex;
  align-items: center;
  gap: 1.5rem;
  padding: 0.6rem 1.2rem;
  background: #fff;
  border-bottom: 1px solid var(--border);
}
.nav { display: flex; gap: 0.8rem; flex: 1; }
.nav-link { color: var(--muted); text-decoration: none; padding: 0.2rem 0.4rem; }
.nav-link.active { color: var(--fg); font-weight: 600; border-bottom: 2px solid var(--accent); }
.who { color: var(--muted); }
.logout { margin: 0; }
.content { max-width: 960px; margin: 1.5rem auto; padding: 0 1rem; }
h1 { font-size: 1.3rem; }
table { width: 100%; border-collapse: collapse; background: #fff; margin-top: 1rem; }
th, td { text-align: left; padding: 0.45rem 0.7rem; border-bottom: 1px solid var(--border); }
th { color: var(--muted); font-weight: 600; font-size: 0.85rem; }
.btn {
  display: inline-block;
  padding: 0.35rem 0.9rem;
  border: 1px solid var(--border);
  border-radius: 6px;
  background: var(--accent);
  color: #fff;
  cursor: pointer;
  text-decoration: none;
  font-size: 0.9rem;
}
.btn-quiet { background: #fff; color: var(--fg); }
.btn-danger { background: var(--danger); }
.editor textarea {
  width: 100%;
  font: 13px/1.5 ui-monospace, SFMono-Regular, Menlo, monospace;
  padding: 0.6rem;
  border: 1px solid var(--border);
  border-radius: 6px;
}
.editor-actions { display: flex; align-items: center; gap: 0.8rem; margin-top: 0.6rem; }
.check { color: var(--muted); font-size: 0.9rem; }
.flashes { margin: 0.8rem 0; }
.flash { padding: 0.5rem 0.8rem; border-radius: 6px; margin-bottom: 0.4rem; }
.flash-error { background: #ffebe9; border: 1px solid var(--danger); }
.flash-info { background: #ddf4ff; border: 1px solid var(--accent); }
.empty, .hint { color: var(--muted); }
.status { font-size: 0.85rem; font-weight: 600; }
.status-RUNNING { color: var(--accent); }
.status-COMPLETED { color: var(--ok); }
.status-FAILED, .status-CANCELED { color: var(--danger); }
.row-actions { display: flex; gap: 0.4rem; }
.row-actions form { margin: 0; }
.pager { display: flex; gap: 0.6rem; margin: 1rem 0; }
.login-card {
  max-width: 380px;
  margin: 6rem auto;
  background: #fff;
  border: 1px solid var(--border);
  border-radius: 8px;
  padding: 1.5rem;
}
.login-card form { display: flex; flex-direction: column; gap: 0.5rem; }
.login-card input, .login-card select { padding: 0.4rem; border: 1px solid var(--border); border-radius: 6px; }
`
