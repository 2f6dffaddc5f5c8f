package main

import "net/http"

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>VideoParty</title>
<meta name="description" content="Watch videos together, in sync">
<style>
*{margin:0;padding:0;box-sizing:border-box}
:root{--bg:#141414;--card:#1f1f1f;--border:#333;--fg:#e5e5e5;--muted:#8a8a8a;--accent:#e50914}
body{
font-family:system-ui,-apple-system,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;
background:var(--bg);color:var(--fg);min-height:100vh;
display:flex;align-items:center;justify-content:center;padding:24px;
}
.card{
background:var(--card);border:1px solid var(--border);border-radius:8px;
padding:32px;max-width:420px;width:100%;text-align:center;
}
h1{font-size:22px;margin-bottom:8px}
h1 span{color:var(--accent)}
p{color:var(--muted);font-size:14px;line-height:1.5;margin-bottom:16px}
code{background:var(--bg);border:1px solid var(--border);border-radius:4px;padding:2px 6px;font-size:13px}
.endpoints{text-align:left;font-size:13px;color:var(--muted)}
.endpoints li{margin:6px 0;list-style:none}
</style>
</head>
<body>
<div class="card">
<h1>Video<span>Party</span></h1>
<p>This is a VideoParty sync server. Point a VideoParty client here to
watch videos together.</p>
<ul class="endpoints">
<li><code>GET /api/health</code> &mdash; liveness</li>
<li><code>GET /api/videos</code> &mdash; media catalog</li>
<li><code>GET /media/&hellip;</code> &mdash; byte-range streaming</li>
<li><code>GET /ws?roomId=&amp;clientId=</code> &mdash; room sync</li>
</ul>
</div>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
