package server

// indexHTML is a minimal client: it opens a session sized to the window,
// redraws the settled SVG after every click, and shows tooltips from the
// scene the server returns for hover events.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>radialtree</title>
<style>
  html, body { margin: 0; height: 100%; font-family: system-ui, sans-serif; }
  #diagram { width: 100vw; height: 100vh; }
  #diagram .node { cursor: pointer; }
  #tip { position: fixed; pointer-events: none; background: #fff; border: 1px solid #ccc;
         border-radius: 4px; padding: 4px 8px; font-size: 12px; display: none; max-width: 320px; }
</style>
</head>
<body>
<div id="diagram"></div>
<div id="tip"></div>
<script>
(async () => {
  const diagram = document.getElementById("diagram");
  const tip = document.getElementById("tip");
  let id = null;

  async function call(method, path, body) {
    const res = await fetch(path, {
      method,
      headers: { "Content-Type": "application/json" },
      body: body ? JSON.stringify(body) : undefined,
    });
    if (!res.ok && res.status !== 204) {
      const err = await res.json().catch(() => ({ error: res.statusText }));
      throw new Error(err.error);
    }
    return res.status === 204 ? null : res.json();
  }

  async function redraw() {
    const res = await fetch("/api/sessions/" + id + "/svg");
    diagram.innerHTML = await res.text();
  }

  async function send(ev) {
    try {
      return await call("POST", "/api/sessions/" + id + "/events", ev);
    } catch (e) {
      console.warn(e);
      return null;
    }
  }

  const created = await call("POST", "/api/sessions", {
    width: window.innerWidth, height: window.innerHeight,
  });
  id = created.id;
  await redraw();

  diagram.addEventListener("click", async (e) => {
    const node = e.target.closest(".node");
    const resp = await send({ type: "click", node: node ? Number(node.dataset.id) : 0 });
    if (resp && resp.update && resp.update.plan) await redraw();
  });

  diagram.addEventListener("mouseover", async (e) => {
    const node = e.target.closest(".node");
    if (!node) return;
    const resp = await send({ type: "hover", node: Number(node.dataset.id), x: e.clientX, y: e.clientY });
    const t = resp && resp.update && resp.update.tooltip;
    if (t && t.visible) {
      tip.textContent = t.text;
      tip.style.left = (t.x + 12) + "px";
      tip.style.top = (t.y + 12) + "px";
      tip.style.display = "block";
    }
  });

  diagram.addEventListener("mouseout", async (e) => {
    if (!e.target.closest(".node")) return;
    tip.style.display = "none";
    await send({ type: "hover_end" });
  });

  let resizeTimer = null;
  window.addEventListener("resize", () => {
    clearTimeout(resizeTimer);
    resizeTimer = setTimeout(async () => {
      await send({ type: "resize", width: window.innerWidth, height: window.innerHeight });
      await redraw();
    }, 200);
  });

  window.addEventListener("beforeunload", () => {
    navigator.sendBeacon && fetch("/api/sessions/" + id, { method: "DELETE", keepalive: true });
  });
})();
</script>
</body>
</html>
`
