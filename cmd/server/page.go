package main

// indexPage is the single-page web UI served at /. It talks to the JSON API
// with plain fetch calls; no build step, no assets.
const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Call Q&amp;A</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); min-height: 100vh; padding: 20px; }
.container { max-width: 1100px; margin: 0 auto; background: white; border-radius: 16px; box-shadow: 0 20px 40px rgba(0,0,0,0.1); overflow: hidden; }
.header { background: linear-gradient(135deg, #4f46e5 0%, #7c3aed 100%); color: white; padding: 28px; text-align: center; }
.header h1 { font-size: 2.2rem; margin-bottom: 8px; }
.header a { color: #e0e7ff; margin: 0 8px; font-size: 0.95rem; }
.main { display: grid; grid-template-columns: 1fr 1fr; min-height: 480px; }
.panel { padding: 32px; display: flex; flex-direction: column; gap: 16px; }
.panel.upload { background: #f8fafc; border-right: 1px solid #e2e8f0; }
.panel h2 { font-size: 1.3rem; color: #334155; }
textarea, input[type="file"], input[type="text"] { padding: 12px; border: 2px solid #e2e8f0; border-radius: 8px; font-size: 15px; font-family: inherit; }
textarea { resize: vertical; min-height: 110px; }
.btn { padding: 12px 24px; background: linear-gradient(135deg, #4f46e5 0%, #7c3aed 100%); color: white; border: none; border-radius: 8px; font-size: 15px; font-weight: 600; cursor: pointer; }
.btn:hover { opacity: 0.92; }
.results { margin-top: 8px; padding: 14px; background: #f1f5f9; border-radius: 8px; max-height: 360px; overflow-y: auto; font-size: 0.95rem; }
.result-item { background: white; padding: 12px; margin-bottom: 10px; border-radius: 6px; border-left: 4px solid #4f46e5; }
.fact { font-weight: 600; color: #1e293b; margin-bottom: 6px; }
.meta { font-size: 0.85rem; color: #64748b; }
.answer { background: #eef2ff; padding: 12px; border-radius: 6px; margin-bottom: 10px; }
.err { color: #b91c1c; }
.ok { color: #15803d; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>🧠 Call Q&amp;A</h1>
    <p>Upload call transcripts, ask questions about them.</p>
    <p>
      <a href="/api/reports/performance">performance report</a> ·
      <a href="/api/reports/insights">usage insights</a> ·
      <a href="/api/health">health</a>
    </p>
  </div>
  <div class="main">
    <div class="panel upload">
      <h2>📤 Upload</h2>
      <textarea id="uploadText" placeholder="Paste a call transcript here..."></textarea>
      <button class="btn" onclick="uploadText()">Upload Text</button>
      <input type="file" id="uploadFiles" multiple>
      <button class="btn" onclick="uploadFiles()">Upload Files</button>
      <div id="uploadStatus"></div>
    </div>
    <div class="panel">
      <h2>🤖 Ask</h2>
      <input type="text" id="queryText" placeholder="What did the customer order?">
      <label><input type="checkbox" id="synthesize" checked> Synthesize answer</label>
      <button class="btn" onclick="ask()">Search</button>
      <div id="queryResults"></div>
    </div>
  </div>
</div>
<script>
async function uploadText() {
  const text = document.getElementById('uploadText').value;
  const status = document.getElementById('uploadStatus');
  if (!text.trim()) { status.innerHTML = '<p class="err">Please enter some text.</p>'; return; }
  try {
    const resp = await fetch('/api/upload-text', {
      method: 'POST',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({text})
    });
    const body = await resp.json();
    if (resp.ok) {
      status.innerHTML = '<p class="ok">✅ Stored as ' + body.episode_name + ' (' + body.content_length + ' chars)</p>';
      document.getElementById('uploadText').value = '';
    } else {
      status.innerHTML = '<p class="err">❌ ' + body.error + '</p>';
    }
  } catch (e) {
    status.innerHTML = '<p class="err">❌ ' + e.message + '</p>';
  }
}

async function uploadFiles() {
  const input = document.getElementById('uploadFiles');
  const status = document.getElementById('uploadStatus');
  if (!input.files.length) { status.innerHTML = '<p class="err">Please select files.</p>'; return; }
  const form = new FormData();
  for (const f of input.files) form.append('files', f);
  try {
    const resp = await fetch('/api/upload-files', {method: 'POST', body: form});
    const body = await resp.json();
    if (resp.ok) {
      status.innerHTML = '<p class="ok">✅ Uploaded ' + body.successful_uploads + '/' + body.total_files + ' files</p>';
      input.value = '';
    } else {
      status.innerHTML = '<p class="err">❌ ' + body.error + '</p>';
    }
  } catch (e) {
    status.innerHTML = '<p class="err">❌ ' + e.message + '</p>';
  }
}

async function ask() {
  const query = document.getElementById('queryText').value;
  const synthesize = document.getElementById('synthesize').checked;
  const out = document.getElementById('queryResults');
  if (!query.trim()) { out.innerHTML = '<p class="err">Please enter a question.</p>'; return; }
  out.innerHTML = '<p>Searching knowledge graph...</p>';
  try {
    const resp = await fetch('/api/search', {
      method: 'POST',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({query, synthesize})
    });
    const body = await resp.json();
    if (!resp.ok) { out.innerHTML = '<p class="err">❌ ' + body.error + '</p>'; return; }
    render(body, out);
  } catch (e) {
    out.innerHTML = '<p class="err">❌ ' + e.message + '</p>';
  }
}

function render(result, out) {
  if (!result.results || !result.results.length) {
    out.innerHTML = '<div class="results"><p>🔍 No results found for "' + result.query + '"</p>' +
      '<p class="meta">Try uploading some call data first or rephrasing your question.</p></div>';
    return;
  }
  let html = '<div class="results">';
  if (result.answer) html += '<div class="answer">🤖 ' + result.answer + '</div>';
  html += '<h3>🔍 ' + result.results.length + ' result(s) for "' + result.query + '"</h3>';
  for (const r of result.results) {
    html += '<div class="result-item"><div class="fact">' + r.fact + '</div><div class="meta">📁 ' +
      (r.source_description || 'Knowledge graph') + '<br>📅 ' + new Date(r.created_at).toLocaleString() +
      (r.relevance_score != null ? '<br>🎯 ' + r.relevance_score.toFixed(2) : '') + '</div></div>';
  }
  out.innerHTML = html + '</div>';
}
</script>
</body>
</html>`
