package dashboard

// dashboardHTML is a self-contained page that polls /stats. It is an
// inline constant rather than a go:embed asset so the dashboard package
// carries no external file dependency.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>tickwyrm dashboard</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
         background: #111417; color: #eee; padding: 20px; }
  h1 { background: linear-gradient(135deg, #2e7d6e, #1f5a50); padding: 14px 24px;
       border-radius: 10px; margin-bottom: 24px; color: white; font-size: 22px;
       display: flex; align-items: center; justify-content: space-between; }
  h1 .dot { width: 10px; height: 10px; border-radius: 50%; background: #0f0;
            display: inline-block; margin-right: 8px; animation: pulse 2s infinite; }
  @keyframes pulse { 0%,100% { opacity:1; } 50% { opacity:0.4; } }
  .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
          gap: 14px; margin-bottom: 28px; }
  .card { background: #1b1f24; border-radius: 10px; padding: 18px;
          border-left: 4px solid #2e7d6e; }
  .card .label { font-size: 11px; text-transform: uppercase; color: #888; }
  .card .value { font-size: 30px; font-weight: bold; color: #5fd1b6; margin-top: 4px; }
  table { width: 100%; border-collapse: collapse; background: #1b1f24; border-radius: 10px; overflow: hidden; }
  th { background: #20262c; padding: 10px 14px; text-align: left; font-size: 12px; text-transform: uppercase; }
  td { padding: 9px 14px; border-bottom: 1px solid #111417; font-size: 14px; }
  .status-bar { font-size: 11px; color: #555; margin-top: 16px; text-align: right; }
</style>
</head>
<body>
<h1><span><span class="dot"></span>tickwyrm server</span><span id="uptime"></span></h1>
<div class="grid" id="cards"></div>
<h2 style="margin-bottom:12px;font-size:14px;color:#aaa;text-transform:uppercase">Alive snakes</h2>
<table>
  <thead><tr><th>#</th><th>Name</th></tr></thead>
  <tbody id="lb"></tbody>
</table>
<div class="status-bar" id="status">Connecting...</div>
<script>
function render(d) {
  document.getElementById('uptime').textContent = Math.round(d.uptimeSeconds) + 's';
  var cards = [
    {label: 'Game', value: d.idle ? 'idle' : ('#' + d.gameId)},
    {label: 'Board', value: d.width + '×' + d.height},
    {label: 'Alive', value: d.alivePlayers + ' / ' + d.totalPlayers},
    {label: 'CPU', value: d.cpuPercent.toFixed(1) + '%'},
    {label: 'RSS', value: (d.rssBytes/1048576).toFixed(1) + ' MB'},
  ];
  document.getElementById('cards').innerHTML = cards.map(function(c) {
    return '<div class="card"><div class="label">'+c.label+'</div><div class="value">'+c.value+'</div></div>';
  }).join('');
  var rows = (d.leaderboard || []).map(function(e) {
    return '<tr><td>'+e.playerNumber+'</td><td>'+esc(e.name)+'</td></tr>';
  }).join('');
  document.getElementById('lb').innerHTML = rows || '<tr><td colspan="2" style="color:#555;text-align:center">No snakes alive</td></tr>';
  document.getElementById('status').textContent = 'Last update: ' + new Date().toLocaleTimeString();
}
function esc(s) { var d = document.createElement('div'); d.textContent = s; return d.innerHTML; }
function poll() {
  fetch('/stats').then(function(r){ return r.json(); }).then(render)
    .catch(function(e){ document.getElementById('status').textContent = 'Error: ' + e; });
}
poll();
setInterval(poll, 1000);
</script>
</body>
</html>`
