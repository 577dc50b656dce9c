package status

import (
	"html/template"
)

type statusTemplateDevice struct {
	Index   int
	Name    string
	Backend string
	Used    bool
	Session string
}

type statusTemplateData struct {
	Version     string
	Devices     []statusTemplateDevice
	DeviceCount int
	Log         string

	IsError bool
	Error   string

	CSRFField template.HTML
}

const templateString = `
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no">
  <title>NetKeyer MIDI bridge status</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", "Roboto", "Helvetica Neue", Arial, sans-serif;
    }

    h1 {
      font-size: 36px;
    }

    p {
      color: #858585;
    }

    #container {
      width: 100%;
    }

    .error {
      border: 1px solid orangered;
      border-radius: 4px;
      min-width: 320px;
      max-width: 500px;
      min-height: 33px;
      margin: 20px auto;
      position: relative;
      color: darkred;
      padding-top: 13px;
    }

    .item {
      border: 1px solid lightgray;
      border-radius: 4px;
      min-width: 320px;
      max-width: 500px;
      min-height: 100px;
      margin: 20px auto;
      position: relative;
    }

    .item h3 {
      left: 20px;
      position: absolute;
    }

    .item .session {
      position: absolute;
      right: 20px;
      top: 20px;
      color: #858585;
    }

    .item p {
      margin-top: 70px;
      margin-left: 20px;
      text-align: left;
    }

    textarea{
      max-width: 700px;
    }

    /*fake link*/
    button {
      background: none !important;
      color: #069;
      border: none;
      padding: 0 !important;
      font: inherit;
      border-bottom: 1px solid #444;
      cursor: pointer;
    }
  </style>
</head>

<body>
  <div id="container">
    <div class="inner-container">
      <div class="heading">
        <h1>NetKeyer MIDI bridge status</h1>
        <span class="badge">Version: {{.Version}}</span>
      </div>

      <p>MIDI inputs: {{.DeviceCount}}</p>

      {{if .IsError}}
        <div class="error">
          <b>Error:</b> {{.Error}}
        </div>
      {{end}}

      {{range .Devices}}
      <div class="item">
        <h3>{{.Name}}</h3>
        <span class="session">
        {{if .Used}} Session: {{.Session}} {{end}} {{if not .Used}} Session: no session {{end}}
        </span>
        <p>Index: {{.Index}} &middot; Backend: {{.Backend}}</p>
       </div>
      {{end}}

       <div class="space-top">
       <p>Console Log
       </p>
       <textarea rows="25" cols="150" id="log">
{{.Log}}
       </textarea>
       <form>
         {{.CSRFField}}
         <a href="#" id="submitlog" onClick="doSubmit()">
           <div class="btn-primary">Download detailed log</div>
         </a>
         <div id="wait" class="badge" style="display: none">Please wait...</div>
       </form>
     </div>

      <div class="space-top">
        <p>You may need to reload the page after connecting / disconnecting device</p>
        <a href="#" onClick="location.href=location.href">
          <div class="btn-primary">Refresh page</div>
        </a>
      </div>
    </div>
  </div>
  <script>
  function doSubmit() {
    document.getElementById("submitlog").style.display = "none";
    document.getElementById("wait").style.display = "inline";

    const formElement = document.getElementsByTagName("form")[0]
    const data = new URLSearchParams();
    for (const pair of new FormData(formElement)) {
      data.append(pair[0], pair[1]);
    }

    fetch("/status/log.gz", {
      method: 'post',
      body: data,
      credentials: 'same-origin',
    }).then(function(resp) {
      return resp.blob();
    }).then(function(blob) {
      const url = window.URL.createObjectURL(blob);
      const a = document.createElement("a");

      document.body.appendChild(a);
      a.style = "display: none";
      a.href = url;
      a.download = "log.gz";
      a.click();

      window.URL.revokeObjectURL(url);

      document.getElementById("submitlog").style.display = "inline";
      document.getElementById("wait").style.display = "none";
    });
  }
  </script>
</body>
</html>
`

var statusTemplate, _ = template.New("status").Parse(templateString)
