package server

// dashboardHTML is the single-page dashboard. It polls the JSON API and
// renders the spot/VWAP chart client-side.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>swapscope — ETH/USDT</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; background: #fafafa; }
  h1 { font-size: 1.4rem; }
  .metrics { display: flex; gap: 2rem; margin-bottom: 1.5rem; }
  .metric { background: #fff; border: 1px solid #ddd; border-radius: 6px; padding: 0.8rem 1.2rem; }
  .metric .label { color: #666; font-size: 0.8rem; }
  .metric .value { font-size: 1.3rem; font-weight: 600; }
  table { border-collapse: collapse; background: #fff; }
  th, td { border: 1px solid #ddd; padding: 0.4rem 0.8rem; font-size: 0.85rem; }
  #chart-wrap { background: #fff; border: 1px solid #ddd; border-radius: 6px; padding: 1rem; max-width: 1000px; margin-bottom: 1.5rem; }
</style>
</head>
<body>
<h1>Uniswap ETH &#8644; USDT — live (V2 &amp; V3)</h1>
<div class="metrics">
  <div class="metric"><div class="label">V2 spot (reserves)</div><div class="value" id="v2-spot">—</div></div>
  <div class="metric"><div class="label">V3 spot (slot0)</div><div class="value" id="v3-spot">—</div></div>
  <div class="metric"><div class="label">V2 VWAP</div><div class="value" id="v2-vwap">—</div></div>
  <div class="metric"><div class="label">V3 VWAP</div><div class="value" id="v3-vwap">—</div></div>
  <div class="metric"><div class="label">Combined VWAP</div><div class="value" id="combined-vwap">—</div></div>
  <div class="metric"><div class="label">Binance reference</div><div class="value" id="reference">—</div></div>
</div>
<div id="chart-wrap"><canvas id="chart" height="90"></canvas></div>
<h2>Recent ETH&#8594;USDT swaps</h2>
<table>
  <thead><tr><th>When</th><th>Pool</th><th>ETH size</th><th>Price (USDT/ETH)</th><th>Block</th><th>Tx</th></tr></thead>
  <tbody id="trades"></tbody>
</table>
<script>
const fmt = (v) => v == null ? "—" : v.toLocaleString(undefined, {maximumFractionDigits: 2});
const chart = new Chart(document.getElementById("chart"), {
  type: "line",
  data: { labels: [], datasets: [
    { label: "V2 spot", data: [], borderColor: "#1f77b4", pointRadius: 0 },
    { label: "V3 spot", data: [], borderColor: "#ff7f0e", pointRadius: 0 },
    { label: "Combined VWAP", data: [], borderColor: "#2ca02c", pointRadius: 0 },
    { label: "Reference", data: [], borderColor: "#d62728", pointRadius: 0, borderDash: [4, 4] }
  ]},
  options: { animation: false, scales: { y: { ticks: { callback: (v) => fmt(v) } } } }
});

async function refresh() {
  const snap = await (await fetch("/api/snapshot")).json();
  document.getElementById("v2-spot").textContent = fmt(snap.v2_spot);
  document.getElementById("v3-spot").textContent = fmt(snap.v3_spot);
  document.getElementById("v2-vwap").textContent = fmt(snap.v2_vwap);
  document.getElementById("v3-vwap").textContent = fmt(snap.v3_vwap);
  document.getElementById("combined-vwap").textContent = fmt(snap.combined_vwap);
  document.getElementById("reference").textContent = fmt(snap.reference);

  chart.data.labels = snap.series.map(s => new Date(s.ts).toLocaleTimeString());
  chart.data.datasets[0].data = snap.series.map(s => s.v2_spot);
  chart.data.datasets[1].data = snap.series.map(s => s.v3_spot);
  chart.data.datasets[2].data = snap.series.map(s => s.combined_vwap);
  chart.data.datasets[3].data = snap.series.map(s => s.reference);
  chart.update();

  const rows = (snap.recent_trades || []).slice(0, 20).map(t =>
    "<tr><td>" + new Date(t.ts).toLocaleTimeString() +
    "</td><td>" + t.pool.toUpperCase() +
    "</td><td>" + t.eth_size.toFixed(6) +
    "</td><td>" + fmt(t.price) +
    "</td><td>" + t.block_number +
    "</td><td>" + t.tx_hash.slice(0, 10) + "…</td></tr>");
  document.getElementById("trades").innerHTML = rows.join("");
}

refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>
`
