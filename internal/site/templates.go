package site

// pageTemplates holds the layout and one body per view. Every page is
// rendered through "layout" with the view name in .View.
const pageTemplates = `{{define "layout"}}<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <meta name="color-scheme" content="light dark">
  <title>{{if .Title}}{{.Title}} · {{end}}{{.SiteTitle}}</title>
  <link rel="stylesheet" href="/static/style.css">
</head>
<body data-route="{{.Route}}" data-live="{{.Live}}">
  <header class="top-bar">
    <a class="site-title" href="/">{{.SiteTitle}}</a>
    <nav class="post-nav" id="post-nav">
      {{range .Posts}}<a href="{{.Route}}" data-route="{{.Route}}"{{if eq .Route $.Route}} class="active"{{end}}>{{.Title}}</a>
      {{end}}
    </nav>
    <form class="theme-form" method="post" action="/theme/toggle">
      <input type="hidden" name="return" value="{{.Return}}">
      <button class="theme-toggle" id="theme-toggle" type="submit">{{.ToggleLabel}}</button>
    </form>
  </header>
  <main class="content">
    <nav class="outline" id="outline"{{if not .Outline}} hidden{{end}}>
      <span class="outline-label">On this page</span>
      <ul>
        {{range .Outline}}<li class="outline-{{.Level}}"><a href="#{{.ID}}">{{.Text}}</a></li>
        {{end}}
      </ul>
    </nav>
    <article class="page-content" id="post" data-phase="{{.Phase}}">
      {{template "body" .}}
    </article>
  </main>
  <script src="/static/app.js"></script>
</body>
</html>{{end}}

{{define "body"}}{{if eq .View "index"}}{{template "index" .}}{{else if eq .View "post"}}{{.Content}}{{else if eq .View "notfound"}}{{template "notfound" .}}{{else}}{{template "failed" .}}{{end}}{{end}}

{{define "index"}}<h1>{{.SiteTitle}}</h1>
<ul class="toc">
  {{range .Posts}}<li><a href="{{.Route}}" data-route="{{.Route}}">{{.Title}}</a></li>
  {{end}}
</ul>{{end}}

{{define "notfound"}}<div class="notice">
  <h1>Not found</h1>
  <p>{{.Message}}</p>
  <p><a href="/">Back to all posts</a></p>
</div>{{end}}

{{define "failed"}}<div class="notice notice-error">
  <h1>Something went wrong</h1>
  <p>{{.Message}}</p>
  <p><a href="{{.Route}}">Try again</a></p>
</div>{{end}}`

// cssContent is the stylesheet for every page. Code colours come from the
// highlighter's inline styles, so only the frame of a code block is styled
// here.
const cssContent = `/* ============ CSS Variables ============ */
:root {
  --bg: #ffffff;
  --bg-secondary: #f8f9fa;
  --text: #212529;
  --text-secondary: #495057;
  --text-muted: #868e96;
  --border: #dee2e6;
  --accent: #228be6;
  --accent-light: #e7f5ff;
  --code-bg: #f1f3f5;
  --code-border: #e9ecef;
  --link: #228be6;
  --error: #c92a2a;
  --content-max-width: 760px;
}

[data-theme="dark"] {
  --bg: #1a1b26;
  --bg-secondary: #1f2030;
  --text: #c0caf5;
  --text-secondary: #a9b1d6;
  --text-muted: #565f89;
  --border: #292e42;
  --accent: #7aa2f7;
  --accent-light: #1a1b2e;
  --code-bg: #1f2030;
  --code-border: #292e42;
  --link: #7aa2f7;
  --error: #f7768e;
}

/* ============ Reset & Base ============ */
*, *::before, *::after {
  box-sizing: border-box;
  margin: 0;
  padding: 0;
}

html {
  font-size: 16px;
}

body {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
  color: var(--text);
  background: var(--bg);
  line-height: 1.7;
  transition: background 0.2s, color 0.2s;
}

/* ============ Navigation ============ */
.top-bar {
  display: flex;
  align-items: center;
  gap: 24px;
  padding: 10px 24px;
  border-bottom: 1px solid var(--border);
  background: var(--bg);
  position: sticky;
  top: 0;
  z-index: 50;
}

.site-title {
  font-weight: 700;
  color: var(--accent);
  text-decoration: none;
  white-space: nowrap;
}

.post-nav {
  display: flex;
  gap: 16px;
  flex: 1;
  overflow-x: auto;
}

.post-nav a {
  color: var(--text-muted);
  text-decoration: none;
  font-size: 0.9rem;
  white-space: nowrap;
}

.post-nav a:hover,
.post-nav a.active {
  color: var(--accent);
}

.theme-toggle {
  background: none;
  border: 1px solid var(--border);
  border-radius: 6px;
  color: var(--text);
  cursor: pointer;
  padding: 6px 10px;
  font-size: 0.85rem;
  transition: background 0.2s;
}

.theme-toggle:hover {
  background: var(--bg-secondary);
}

/* ============ Content ============ */
.page-content {
  max-width: var(--content-max-width);
  margin: 0 auto;
  padding: 32px 24px 64px;
}

.page-content[data-phase="fetching"] {
  opacity: 0.6;
}

.page-content h1 {
  font-size: 2rem;
  font-weight: 700;
  margin: 0 0 16px;
  padding-bottom: 8px;
  border-bottom: 2px solid var(--border);
}

.page-content h2 {
  font-size: 1.5rem;
  font-weight: 600;
  margin: 32px 0 12px;
  padding-bottom: 6px;
  border-bottom: 1px solid var(--border);
}

.page-content h3 {
  font-size: 1.2rem;
  font-weight: 600;
  margin: 24px 0 8px;
}

.page-content p,
.page-content ul,
.page-content ol,
.page-content table {
  margin: 0 0 16px;
}

.page-content ul, .page-content ol {
  padding-left: 24px;
}

.page-content a {
  color: var(--link);
  text-decoration: none;
}

.page-content a:hover {
  text-decoration: underline;
}

.page-content hr {
  border: none;
  border-top: 1px solid var(--border);
  margin: 24px 0;
}

.page-content blockquote {
  border-left: 4px solid var(--accent);
  padding: 8px 16px;
  margin: 0 0 16px;
  background: var(--bg-secondary);
  color: var(--text-secondary);
}

/* ============ Code ============ */
.page-content code {
  font-family: "JetBrains Mono", "Fira Code", "SF Mono", Consolas, monospace;
  font-size: 0.88em;
  background: var(--code-bg);
  padding: 2px 6px;
  border-radius: 4px;
  border: 1px solid var(--code-border);
}

.page-content pre {
  margin: 0 0 16px;
  padding: 16px;
  border-radius: 8px;
  border: 1px solid var(--code-border);
  background: var(--code-bg);
  overflow-x: auto;
  font-size: 0.85rem;
  line-height: 1.6;
}

.page-content pre code {
  padding: 0;
  border: none;
  background: none;
  font-size: inherit;
}

/* ============ Tables ============ */
.page-content table {
  width: 100%;
  border-collapse: collapse;
  font-size: 0.9rem;
}

.page-content th,
.page-content td {
  padding: 8px 12px;
  border: 1px solid var(--border);
  text-align: left;
}

/* ============ Outline ============ */
.outline {
  margin-bottom: 24px;
  padding: 12px 16px;
  border-left: 3px solid var(--accent);
  background: var(--bg-secondary);
  font-size: 0.9rem;
}

.outline[hidden] {
  display: none;
}

.outline-label {
  color: var(--text-muted);
  text-transform: uppercase;
  font-size: 0.75rem;
  letter-spacing: 0.05em;
}

.outline ul {
  list-style: none;
}

.outline-3 {
  padding-left: 16px;
}

/* ============ Notices ============ */
.toc {
  list-style: none;
  padding-left: 0;
}

.toc li {
  padding: 6px 0;
  border-bottom: 1px solid var(--border);
}

.notice-error h1 {
  color: var(--error);
}
`

// jsContent keeps a page in sync with its live session. Without it, or
// when the socket is down, links and the toggle form work as plain HTML.
const jsContent = `(function() {
  "use strict";

  var html = document.documentElement;
  var body = document.body;
  var post = document.getElementById("post");
  var outline = document.getElementById("outline");
  var toggle = document.getElementById("theme-toggle");
  var form = toggle ? toggle.form : null;
  var media = window.matchMedia ? window.matchMedia("(prefers-color-scheme: dark)") : null;
  var socket = null;

  if (body.getAttribute("data-live") !== "true" || !window.WebSocket) {
    return;
  }

  function labelFor(theme) {
    return theme === "dark" ? "Turn on Light Mode" : "Turn on Dark Mode";
  }

  function applyTheme(theme) {
    html.setAttribute("data-theme", theme);
    if (toggle) toggle.textContent = labelFor(theme);
  }

  function markActive(route) {
    document.querySelectorAll("#post-nav a").forEach(function(a) {
      a.classList.toggle("active", a.getAttribute("data-route") === route);
    });
  }

  function showOutline(sections) {
    if (!outline) return;
    var list = outline.querySelector("ul");
    list.innerHTML = "";
    (sections || []).forEach(function(s) {
      var li = document.createElement("li");
      li.className = "outline-" + s.level;
      var a = document.createElement("a");
      a.href = "#" + s.id;
      a.textContent = s.text;
      li.appendChild(a);
      list.appendChild(li);
    });
    outline.hidden = !sections || sections.length === 0;
  }

  function showContent(frame) {
    post.setAttribute("data-phase", frame.phase);
    if (frame.phase === "rendered" || (frame.phase === "fetching" && frame.html)) {
      post.innerHTML = frame.html;
      if (frame.title) document.title = frame.title;
      showOutline(frame.outline);
    } else if (frame.phase === "failed" || frame.phase === "not_found") {
      showOutline(null);
      post.innerHTML = "";
      var p = document.createElement("p");
      p.className = "notice notice-error";
      p.textContent = frame.error;
      post.appendChild(p);
    }
    markActive(frame.route);
  }

  function send(frame) {
    if (socket && socket.readyState === WebSocket.OPEN) {
      socket.send(JSON.stringify(frame));
      return true;
    }
    return false;
  }

  function connect() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var query = "?route=" + encodeURIComponent(body.getAttribute("data-route") || "");
    if (media) query += "&ambient=" + (media.matches ? "dark" : "light");
    socket = new WebSocket(scheme + location.host + "/ws/live" + query);

    socket.onmessage = function(ev) {
      var frame;
      try { frame = JSON.parse(ev.data); } catch (e) { return; }
      switch (frame.type) {
        case "theme":
          applyTheme(frame.theme);
          break;
        case "content":
          showContent(frame);
          break;
        case "persist":
          document.cookie = frame.key + "=" + encodeURIComponent(frame.value) +
            "; path=/; max-age=31536000; samesite=lax";
          break;
      }
    };
    socket.onclose = function() { socket = null; };
  }

  if (media) {
    var onAmbient = function(e) { send({ type: "ambient", dark: e.matches }); };
    if (media.addEventListener) media.addEventListener("change", onAmbient);
    else if (media.addListener) media.addListener(onAmbient);
  }

  if (form) {
    form.addEventListener("submit", function(e) {
      if (send({ type: "toggle" })) e.preventDefault();
    });
  }

  document.addEventListener("click", function(e) {
    var a = e.target.closest ? e.target.closest("a[data-route]") : null;
    if (!a || e.metaKey || e.ctrlKey || e.shiftKey) return;
    var route = a.getAttribute("data-route");
    if (!send({ type: "navigate", route: route })) return;
    e.preventDefault();
    body.setAttribute("data-route", route);
    if (form) form.elements["return"].value = route;
    history.pushState({ route: route }, "", route);
  });

  window.addEventListener("popstate", function() {
    var route = location.pathname;
    if (route === "/" || !send({ type: "navigate", route: route })) {
      location.reload();
      return;
    }
    body.setAttribute("data-route", route);
  });

  connect();
})();
`
