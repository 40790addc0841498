package selection

import "strings"

// BindingName is the function the rendering context calls to forward events
// to the host. The preview driver registers it as a CDP binding before the
// page loads.
const BindingName = "__mockupEmit"

// Script is the JavaScript injected into every rendering context. It draws
// hover and selection outlines, forwards normalized pointer events to the
// host, and suppresses navigation so the page stays a live preview: links,
// form submission and reload shortcuts are all inert inside the context.
//
// The visual selection state in the page mirrors the session's click rules
// but is presentation only; the host-side session remains authoritative.
var Script = strings.NewReplacer(
	"@HOVER@", hoverClass,
	"@SELECTED@", selectedClass,
	"@BINDING@", BindingName,
).Replace(scriptTemplate)

const scriptTemplate = `
(function () {
	'use strict';

	function emit(msg) {
		if (typeof window['@BINDING@'] === 'function') {
			window['@BINDING@'](JSON.stringify(msg));
		}
	}

	function pathOf(el) {
		var path = [];
		while (el && el !== document.body && el.parentElement) {
			path.unshift(Array.prototype.indexOf.call(el.parentElement.children, el));
			el = el.parentElement;
		}
		return path;
	}

	document.addEventListener('DOMContentLoaded', function () {
		var style = document.createElement('style');
		style.textContent =
			'.@HOVER@ { outline: 1px dashed #4a90d9 !important; outline-offset: 1px; cursor: default; }' +
			'.@SELECTED@ { outline: 2px solid #4a90d9 !important; outline-offset: 1px; }';
		document.head.appendChild(style);
	});

	document.addEventListener('mouseover', function (e) {
		if (e.target === document.body || e.target === document.documentElement) { return; }
		e.target.classList.add('@HOVER@');
		emit({ action: 'hover', path: pathOf(e.target) });
	}, true);

	document.addEventListener('mouseout', function (e) {
		e.target.classList.remove('@HOVER@');
		emit({ action: 'leave', path: [] });
	}, true);

	// Visual mirror of the host selection rules. The host decides what is
	// actually selected; this only keeps outlines in sync without waiting
	// for a round trip.
	var selected = [];

	function clearOutlines() {
		selected.forEach(function (el) { el.classList.remove('@SELECTED@'); });
		selected = [];
	}

	window.__mockupClear = function () {
		clearOutlines();
		document.querySelectorAll('.@HOVER@').forEach(function (el) {
			el.classList.remove('@HOVER@');
		});
	};

	document.addEventListener('click', function (e) {
		e.preventDefault();
		e.stopPropagation();

		var el = e.target;
		var modified = e.shiftKey || e.ctrlKey || e.metaKey;

		if (el === document.body || el === document.documentElement) {
			clearOutlines();
		} else if (modified) {
			var i = selected.indexOf(el);
			if (i >= 0) {
				el.classList.remove('@SELECTED@');
				selected.splice(i, 1);
			} else {
				el.classList.add('@SELECTED@');
				selected.push(el);
			}
		} else if (selected.length === 1 && selected[0] === el) {
			clearOutlines();
		} else {
			clearOutlines();
			el.classList.add('@SELECTED@');
			selected.push(el);
		}

		emit({
			action: 'click',
			path: pathOf(el),
			shift: e.shiftKey,
			ctrl: e.ctrlKey,
			meta: e.metaKey
		});
	}, true);

	document.addEventListener('submit', function (e) {
		e.preventDefault();
		e.stopPropagation();
	}, true);

	document.addEventListener('keydown', function (e) {
		if (e.key === 'F5' || ((e.ctrlKey || e.metaKey) && (e.key === 'r' || e.key === 'R'))) {
			e.preventDefault();
		}
	}, true);
})();
`
