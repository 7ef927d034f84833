package http

import "net/http"

// homeHTML is the landing page: a form that posts to the shorten endpoint.
const homeHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Shortly</title>
</head>
<body style="font-family: Arial; max-width: 720px; margin: 40px auto;">
  <h2>Shortly</h2>
  <p>Paste a long URL and get a short link.</p>

  <form id="f">
    <input id="url" placeholder="https://example.com" style="width:100%; padding:10px;" required />
    <div style="margin-top:10px;">
      <input id="days" type="number" value="7" min="1" max="365" style="width:120px; padding:8px;" />
      <button style="padding:8px 14px;">Shorten</button>
    </div>
  </form>

  <div id="out" style="margin-top:18px;"></div>

<script>
document.getElementById("f").addEventListener("submit", async (e) => {
  e.preventDefault();
  const url = document.getElementById("url").value;
  const expiry_days = parseInt(document.getElementById("days").value, 10);

  const res = await fetch("/api/v1/shorten", {
    method: "POST",
    headers: {"Content-Type":"application/json"},
    body: JSON.stringify({url, expiry_days})
  });

  const data = await res.json();
  const out = document.getElementById("out");

  if (!res.ok) {
    out.innerHTML = "<p style='color:red;'>" + (data.message || "Error") + "</p>";
    return;
  }

  out.innerHTML = ` + "`" + `
    <p><b>Short URL:</b> <a href="${data.data.short_url}" target="_blank">${data.data.short_url}</a></p>
    <p><b>Expires at:</b> ${data.data.expires_at}</p>
    <button id="copy">Copy</button>
  ` + "`" + `;

  document.getElementById("copy").onclick = async () => {
    await navigator.clipboard.writeText(data.data.short_url);
    alert("Copied!");
  };
});
</script>
</body>
</html>
`

func handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(homeHTML))
}
