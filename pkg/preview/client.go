package preview

// ClientScript is injected into served pages. It forwards DOM events of
// annotated elements to the server and swaps in each new rendering.
const ClientScript = `
(function() {
    var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws = new WebSocket(proto + '//' + location.host + '/ws');
    var root = document.querySelector('[data-fbind-root]');

    function send(msg) {
        if (ws.readyState === 1) ws.send(JSON.stringify(msg));
    }

    function forward(e) {
        var el = e.target.closest('[data-fbind-id]');
        if (!el) return;
        var value = null;
        if (el.type === 'checkbox') value = el.checked;
        else if ('value' in el) value = el.value;
        send({type: 'event', id: parseInt(el.getAttribute('data-fbind-id'), 10), event: e.type, value: value});
    }

    ['click', 'input', 'change', 'submit'].forEach(function(type) {
        document.addEventListener(type, forward, true);
    });

    ws.onmessage = function(e) {
        var msg = JSON.parse(e.data);
        if (msg.type === 'render' && root) {
            var active = document.activeElement;
            var id = active && active.getAttribute('data-fbind-id');
            root.innerHTML = msg.html;
            if (id) {
                var next = root.querySelector('[data-fbind-id="' + id + '"]');
                if (next) next.focus();
            }
        } else if (msg.type === 'error') {
            console.warn('[fbind]', msg.error);
        }
    };

    ws.onclose = function() {
        console.log('[fbind] Connection lost');
    };

    window.fbind = {
        set: function(path, value) { send({type: 'set', path: path, value: value}); }
    };
})();
`
