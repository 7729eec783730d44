package modal

// The claude.ai file preview is a portal-rendered dialog with no stable
// close API, so every lifecycle step runs as an injected script. Scripts
// return JSON-serializable values only; all decisions happen on the Go side.

// jsSurfaceCount reports how many dialog surfaces are currently mounted.
const jsSurfaceCount = `() => {
	return document.querySelectorAll('[role="dialog"], [aria-modal="true"]').length;
}`

// jsFindFileControl checks for a file card whose title matches name exactly
// after trimming. It never clicks.
const jsFindFileControl = `(name) => {
	const headers = Array.from(document.querySelectorAll('h3'));
	return headers.some(h => (h.textContent || '').trim() === name);
}`

// jsOpenFile clicks the card for name. The click target is the nearest
// clickable ancestor of the matching title so the whole thumbnail activates,
// matching what a user click would hit.
const jsOpenFile = `(name) => {
	const headers = Array.from(document.querySelectorAll('h3'));
	const match = headers.find(h => (h.textContent || '').trim() === name);
	if (!match) return false;
	const control = match.closest('[data-testid="file-thumbnail"], button, [role="button"], a') || match;
	control.click();
	return true;
}`

// jsDialogContent extracts preview text from the topmost dialog surface.
// Monospace containers are tried first because file previews render in
// them; otherwise the longest leaf text block inside the surface wins.
const jsDialogContent = `() => {
	const surfaces = document.querySelectorAll('[role="dialog"], [aria-modal="true"]');
	if (surfaces.length === 0) return null;
	const surface = surfaces[surfaces.length - 1];

	let best = '';
	const blocks = surface.querySelectorAll('pre, code, [class*="font-mono"], [class*="monospace"]');
	for (const b of blocks) {
		const text = b.innerText || b.textContent || '';
		if (text.length > best.length) best = text;
	}
	if (best.trim().length > 0) return { text: best, tier: 'monospace' };

	let longest = '';
	const walker = document.createTreeWalker(surface, NodeFilter.SHOW_ELEMENT);
	while (walker.nextNode()) {
		const el = walker.currentNode;
		if (el.children.length > 0) continue;
		const text = el.innerText || el.textContent || '';
		if (text.length > longest.length) longest = text;
	}
	if (longest.trim().length > 0) return { text: longest, tier: 'longest-block' };
	return null;
}`

// jsPageScan is the degraded path when no dialog surface is mounted: scan
// the whole page for the largest monospace block.
const jsPageScan = `() => {
	let best = '';
	const blocks = document.querySelectorAll('pre, code, [class*="font-mono"], [class*="monospace"]');
	for (const b of blocks) {
		const text = b.innerText || b.textContent || '';
		if (text.length > best.length) best = text;
	}
	if (best.trim().length === 0) return null;
	return { text: best, tier: 'page-scan' };
}`

// jsClickClose clicks the topmost dialog's close control when one exists.
const jsClickClose = `() => {
	const surfaces = document.querySelectorAll('[role="dialog"], [aria-modal="true"]');
	if (surfaces.length === 0) return false;
	const surface = surfaces[surfaces.length - 1];

	const selectors = ['[aria-label="Close"]', '[data-testid="modal-close"]', 'button[aria-label*="lose"]'];
	for (const sel of selectors) {
		const btn = surface.querySelector(sel);
		if (btn) { btn.click(); return true; }
	}
	const byText = Array.from(surface.querySelectorAll('button'))
		.find(b => ['close', 'done', 'cancel'].includes((b.textContent || '').trim().toLowerCase()));
	if (byText) { byText.click(); return true; }
	return false;
}`

// jsForceClose dismantles stuck dialogs in place: release keyboard focus,
// click every close control on the page, hide overlay and backdrop layers,
// strip scroll-lock state, and remove portal mount points. Returns the
// number of interventions taken.
const jsForceClose = `() => {
	let actions = 0;

	const active = document.activeElement;
	if (active && (active.isContentEditable || active.tagName === 'INPUT' || active.tagName === 'TEXTAREA')) {
		active.blur();
		actions++;
	}

	document.querySelectorAll('[aria-label="Close"], [data-testid="modal-close"]').forEach(btn => {
		btn.click();
		actions++;
	});

	document.querySelectorAll('[role="dialog"], [aria-modal="true"], [class*="overlay"], [class*="backdrop"]').forEach(el => {
		el.style.display = 'none';
		actions++;
	});

	document.querySelectorAll('[class*="modal-open"]').forEach(el => {
		el.className = el.className.replace(/\bmodal-open\b/g, '').trim();
		actions++;
	});
	document.body.classList.remove('overflow-hidden');
	document.documentElement.classList.remove('overflow-hidden');

	document.querySelectorAll('[data-radix-portal], [data-portal]').forEach(el => {
		el.remove();
		actions++;
	});

	return actions;
}`
