package browser

import (
	"encoding/json"
	"fmt"
)

// snapshotScript clones the first match of a selector and copies live form
// state into attributes so the markup alone describes what the user sees.
const snapshotScript = `(function(sel) {
  const el = document.querySelector(sel);
  if (!el) return '';
  const clone = el.cloneNode(true);
  const src = el.querySelectorAll('input, select, textarea');
  const dst = clone.querySelectorAll('input, select, textarea');
  for (let i = 0; i < src.length; i++) {
    const s = src[i], d = dst[i];
    if (s.tagName === 'SELECT') {
      for (let j = 0; j < s.options.length; j++) {
        if (s.options[j].selected) d.options[j].setAttribute('selected', '');
        else d.options[j].removeAttribute('selected');
      }
    } else if (s.type === 'checkbox' || s.type === 'radio') {
      if (s.checked) d.setAttribute('checked', '');
      else d.removeAttribute('checked');
    } else if (s.type === 'file') {
      if (s.files && s.files.length) d.setAttribute('data-files', String(s.files.length));
    } else if (s.tagName === 'TEXTAREA') {
      d.textContent = s.value;
    } else {
      d.setAttribute('value', s.value);
    }
  }
  return clone.outerHTML;
})(%s)`

const selectScript = `(function(sel, value) {
  const el = document.querySelector(sel);
  if (!el) return false;
  const opt = Array.from(el.options).find(o => o.value === value || o.text.trim() === value);
  if (!opt) return false;
  el.value = opt.value;
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;
})(%s, %s)`

const checkScript = `(function(sel, want) {
  const el = document.querySelector(sel);
  if (!el) return 'missing';
  if (el.checked !== want) el.click();
  return el.checked ? 'checked' : 'unchecked';
})(%s, %t)`

const scrollScript = `(function(sel, dy) {
  const el = sel ? document.querySelector(sel) : null;
  const target = (el && el.scrollHeight > el.clientHeight) ? el : document.scrollingElement;
  target.scrollBy(0, dy);
  return target.scrollTop;
})(%s, %d)`

const selectAllScript = `(function(sel) {
  const el = document.querySelector(sel);
  if (el && el.select) el.select();
  return !!el;
})(%s)`

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func snapshotJS(selector string) string {
	return fmt.Sprintf(snapshotScript, jsString(selector))
}

func selectJS(selector, value string) string {
	return fmt.Sprintf(selectScript, jsString(selector), jsString(value))
}

func checkJS(selector string, want bool) string {
	return fmt.Sprintf(checkScript, jsString(selector), want)
}

func scrollJS(container string, dy int) string {
	return fmt.Sprintf(scrollScript, jsString(container), dy)
}

func selectAllJS(selector string) string {
	return fmt.Sprintf(selectAllScript, jsString(selector))
}
