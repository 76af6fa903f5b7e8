package html

// CSRFCookie is the double-submit cookie read by CSRFFormScript.
const CSRFCookie = "X-CSRF-Token"

// CSRFFormScript copies the CSRF cookie into every POST form at submit time,
// so forms rendered after page load are covered too.
func CSRFFormScript() string {
	return `<script>
document.addEventListener("submit", function (ev) {
  var form = ev.target;
  if ((form.method || "").toLowerCase() !== "post") return;
  var m = document.cookie.match(/(?:^|;\s*)` + CSRFCookie + `=([^;]*)/);
  if (!m) return;
  var field = form.querySelector("input[name='_csrf']");
  if (!field) {
    field = document.createElement("input");
    field.type = "hidden";
    field.name = "_csrf";
    form.appendChild(field);
  }
  field.value = decodeURIComponent(m[1]);
}, true);
</script>`
}
